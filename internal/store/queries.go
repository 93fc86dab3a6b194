package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/franz/sparkify-etl/internal/util"
)

// TableCount is the number of rows held by one table
type TableCount struct {
	Table string
	Rows  int64
}

// CountRows returns the number of rows in one of the star schema tables
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("unknown table %q: %w", table, util.ErrUnsupported)
	}

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteTable(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// TableCounts returns row counts for every star schema table
func (s *Store) TableCounts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// GetSong retrieves a song by song_id, or nil if absent
func (s *Store) GetSong(ctx context.Context, songID string) (*Song, error) {
	song := &Song{}
	var title sql.NullString
	var year sql.NullInt64
	var duration sql.NullFloat64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT song_id, title, artist_id, year, duration
		FROM songs WHERE song_id = ?
	`), songID).Scan(&song.SongID, &title, &song.ArtistID, &year, &duration)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	if title.Valid {
		song.Title = &title.String
	}
	if year.Valid {
		y := int(year.Int64)
		song.Year = &y
	}
	if duration.Valid {
		song.Duration = &duration.Float64
	}
	return song, nil
}

// GetArtist retrieves an artist by artist_id, or nil if absent
func (s *Store) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	a := &Artist{}
	var name, location sql.NullString
	var lat, lon sql.NullFloat64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT artist_id, name, location, latitude, longitude
		FROM artists WHERE artist_id = ?
	`), artistID).Scan(&a.ArtistID, &name, &location, &lat, &lon)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	if name.Valid {
		a.Name = &name.String
	}
	if location.Valid {
		a.Location = &location.String
	}
	if lat.Valid {
		a.Latitude = &lat.Float64
	}
	if lon.Valid {
		a.Longitude = &lon.Float64
	}
	return a, nil
}

// GetUser retrieves a user by user_id, or nil if absent
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT user_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
		       COALESCE(gender, ''), COALESCE(level, '')
		FROM users WHERE user_id = ?
	`), userID).Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Gender, &u.Level)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetTime retrieves a time row by start_time, or nil if absent
func (s *Store) GetTime(ctx context.Context, startTime string) (*TimeDimension, error) {
	td := &TimeDimension{}
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT start_time, hour, day, week, month, year, weekday
		FROM "time" WHERE start_time = ?
	`), startTime).Scan(&td.StartTime, &td.Hour, &td.Day, &td.Week, &td.Month, &td.Year, &td.Weekday)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time: %w", err)
	}
	return td, nil
}

// GetSongplay retrieves a songplay by songplay_id, or nil if absent
func (s *Store) GetSongplay(ctx context.Context, songplayID string) (*Songplay, error) {
	sp := &Songplay{}
	var songID, artistID sql.NullString
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT songplay_id, start_time, user_id, COALESCE(level, ''), song_id, artist_id,
		       COALESCE(session_id, ''), COALESCE(location, ''), COALESCE(user_agent, '')
		FROM songplays WHERE songplay_id = ?
	`), songplayID).Scan(
		&sp.SongplayID, &sp.StartTime, &sp.UserID, &sp.Level, &songID, &artistID,
		&sp.SessionID, &sp.Location, &sp.UserAgent,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get songplay: %w", err)
	}
	if songID.Valid {
		sp.SongID = &songID.String
	}
	if artistID.Valid {
		sp.ArtistID = &artistID.String
	}
	return sp, nil
}

// ListSongplayIDs returns all songplay keys in ascending order
func (s *Store) ListSongplayIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT songplay_id FROM songplays ORDER BY songplay_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query songplays: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan songplay: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountMatchedSongplays returns how many songplays resolved to a song
func (s *Store) CountMatchedSongplays(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songplays WHERE song_id IS NOT NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matched songplays: %w", err)
	}
	return count, nil
}
