package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/franz/sparkify-etl/internal/util"
)

// KeyStrategy selects how songplay_id is derived
type KeyStrategy string

const (
	// KeyHash derives a name-based UUID from start time, user and session.
	// The key is stable across re-runs and unique across files.
	KeyHash KeyStrategy = "hash"

	// KeyRow uses the event's zero-based position within its file. Keys
	// collide across files; kept for compatibility with older loads.
	KeyRow KeyStrategy = "row"
)

var songplayNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:sparkify:songplays"))

// ParseKeyStrategy parses a configured strategy name; empty selects KeyHash
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyHash:
		return KeyHash, nil
	case KeyRow:
		return KeyRow, nil
	}
	return "", fmt.Errorf("songplay key strategy %q (want hash or row): %w", s, util.ErrInvalidConfig)
}

// SongplayKey returns the songplay_id for an event under the strategy
func (k KeyStrategy) SongplayKey(e *PlayEvent) string {
	if k == KeyRow {
		return strconv.Itoa(e.Row)
	}
	name := e.StartTime() + "|" + e.UserID + "|" + e.SessionID
	return uuid.NewSHA1(songplayNamespace, []byte(name)).String()
}
