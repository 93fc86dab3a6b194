package extract

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/sparkify-etl/internal/util"
)

func TestParseKeyStrategy(t *testing.T) {
	for in, want := range map[string]KeyStrategy{"": KeyHash, "hash": KeyHash, " HASH ": KeyHash, "row": KeyRow} {
		got, err := ParseKeyStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKeyStrategy("serial")
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
}

func TestSongplayKeyHash(t *testing.T) {
	ev := &PlayEvent{Row: 3, Timestamp: 1541903636796, UserID: "15", SessionID: "818"}

	key := KeyHash.SongplayKey(ev)
	parsed, err := uuid.Parse(key)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	// stable across runs and independent of the in-file position
	moved := *ev
	moved.Row = 40
	assert.Equal(t, key, KeyHash.SongplayKey(&moved))

	other := *ev
	other.SessionID = "819"
	assert.NotEqual(t, key, KeyHash.SongplayKey(&other))
}

func TestSongplayKeyRow(t *testing.T) {
	assert.Equal(t, "0", KeyRow.SongplayKey(&PlayEvent{Row: 0}))
	assert.Equal(t, "17", KeyRow.SongplayKey(&PlayEvent{Row: 17}))
}
