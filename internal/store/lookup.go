package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Duration is compared with exact floating-point equality. Values loaded
// from the song data and the event log agree bit for bit in practice, but a
// rounded duration on either side will miss.
const songArtistLookup = `
	SELECT s.song_id, a.artist_id
	FROM songs s
	JOIN artists a ON s.artist_id = a.artist_id
	WHERE s.title = ? AND a.name = ? AND s.duration = ?
	ORDER BY s.song_id
	LIMIT 1`

// FindSongArtist resolves a (title, artist name, duration) triple to the
// matching song and artist keys. ok is false when nothing matches; a miss
// is not an error.
func (t *Tx) FindSongArtist(ctx context.Context, title, artistName string, duration float64) (songID, artistID string, ok bool, err error) {
	err = t.tx.QueryRowContext(ctx, t.dialect.rebind(songArtistLookup), title, artistName, duration).
		Scan(&songID, &artistID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("song lookup failed: %w", err)
	}
	return songID, artistID, true, nil
}
