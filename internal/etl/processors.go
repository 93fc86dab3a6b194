package etl

import (
	"context"
	"fmt"

	"github.com/franz/sparkify-etl/internal/extract"
	"github.com/franz/sparkify-etl/internal/report"
	"github.com/franz/sparkify-etl/internal/store"
)

// SongProcessor loads song-metadata files into songs and artists
type SongProcessor struct {
	Logger *report.EventLogger
}

func (p *SongProcessor) Name() string { return "songs" }

// Process upserts one song and one artist per usable record of the file
func (p *SongProcessor) Process(ctx context.Context, tx *store.Tx, path string) (*FileStats, error) {
	batch, err := extract.ReadSongFile(path)
	if err != nil {
		return nil, err
	}

	stats := newFileStats()
	stats.Skipped = batch.Skipped
	p.Logger.LogSkip(p.Name(), path, "missing song_id or artist_id", batch.Skipped)

	for i := range batch.Songs {
		if err := tx.UpsertSong(ctx, &batch.Songs[i]); err != nil {
			return nil, err
		}
		stats.Rows["songs"]++

		if err := tx.UpsertArtist(ctx, &batch.Artists[i]); err != nil {
			return nil, err
		}
		stats.Rows["artists"]++
	}

	return stats, nil
}

// LogProcessor loads event-log files into time, users and songplays
type LogProcessor struct {
	KeyStrategy extract.KeyStrategy // default KeyHash
	PlayMarker  string              // default extract.DefaultPlayMarker

	// RequireMatch drops songplays whose song could not be resolved
	// instead of loading them with null song and artist keys.
	RequireMatch bool

	Logger *report.EventLogger
}

func (p *LogProcessor) Name() string { return "logs" }

// Process handles every play event of the file in order: time row, user
// row, song lookup, then the songplay fact.
func (p *LogProcessor) Process(ctx context.Context, tx *store.Tx, path string) (*FileStats, error) {
	batch, err := extract.ReadEventFile(path, &extract.EventOptions{PlayMarker: p.PlayMarker})
	if err != nil {
		return nil, err
	}

	keys := p.KeyStrategy
	if keys == "" {
		keys = extract.KeyHash
	}

	stats := newFileStats()
	stats.Skipped = batch.NonPlay + batch.MissingIDs
	p.Logger.LogSkip(p.Name(), path, "not a song play", batch.NonPlay)
	p.Logger.LogSkip(p.Name(), path, "missing ts or userId", batch.MissingIDs)

	for i := range batch.Events {
		event := &batch.Events[i]

		td := event.Time()
		if err := tx.UpsertTime(ctx, &td); err != nil {
			return nil, err
		}
		stats.Rows["time"]++

		user := event.User()
		if err := tx.UpsertUser(ctx, &user); err != nil {
			return nil, err
		}
		stats.Rows["users"]++

		songID, artistID, err := p.resolve(ctx, tx, event)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", event.Row, err)
		}
		if songID == nil {
			stats.LookupMisses++
			if p.Logger.Enabled(report.LevelDebug) {
				p.Logger.LogLookupMiss(path, event.Row, event.Song.Value, event.Artist.Value)
			}
			if p.RequireMatch {
				continue
			}
		}

		songplay := event.Songplay(keys.SongplayKey(event), songID, artistID)
		if err := tx.UpsertSongplay(ctx, &songplay); err != nil {
			return nil, err
		}
		stats.Rows["songplays"]++
	}

	return stats, nil
}

// resolve looks up the played song. Both keys are nil on a miss.
func (p *LogProcessor) resolve(ctx context.Context, tx *store.Tx, event *extract.PlayEvent) (songID, artistID *string, err error) {
	title, artist, duration, ok := event.LookupKey()
	if !ok {
		return nil, nil, nil
	}

	sid, aid, found, err := tx.FindSongArtist(ctx, title, artist, duration)
	if err != nil || !found {
		return nil, nil, err
	}
	return &sid, &aid, nil
}
