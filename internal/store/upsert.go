package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Every upsert overwrites all non-key columns on conflict: last write wins,
// no partial merge.
const (
	songUpsert = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(song_id) DO UPDATE SET
			title = excluded.title,
			artist_id = excluded.artist_id,
			year = excluded.year,
			duration = excluded.duration`

	artistUpsert = `
		INSERT INTO artists (artist_id, name, location, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(artist_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			latitude = excluded.latitude,
			longitude = excluded.longitude`

	userUpsert = `
		INSERT INTO users (user_id, first_name, last_name, gender, level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			gender = excluded.gender,
			level = excluded.level`

	timeUpsert = `
		INSERT INTO "time" (start_time, hour, day, week, month, year, weekday)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(start_time) DO UPDATE SET
			hour = excluded.hour,
			day = excluded.day,
			week = excluded.week,
			month = excluded.month,
			year = excluded.year,
			weekday = excluded.weekday`

	songplayUpsert = `
		INSERT INTO songplays (songplay_id, start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(songplay_id) DO UPDATE SET
			start_time = excluded.start_time,
			user_id = excluded.user_id,
			level = excluded.level,
			song_id = excluded.song_id,
			artist_id = excluded.artist_id,
			session_id = excluded.session_id,
			location = excluded.location,
			user_agent = excluded.user_agent`
)

// UpsertSong inserts a song or overwrites the existing row with the same song_id
func (t *Tx) UpsertSong(ctx context.Context, s *Song) error {
	err := t.exec(ctx, songUpsert, s.SongID, nullString(s.Title), s.ArtistID, nullInt(s.Year), nullFloat(s.Duration))
	if err != nil {
		return fmt.Errorf("failed to upsert song %s: %w", s.SongID, err)
	}
	return nil
}

// UpsertArtist inserts an artist or overwrites the existing row with the same artist_id
func (t *Tx) UpsertArtist(ctx context.Context, a *Artist) error {
	err := t.exec(ctx, artistUpsert, a.ArtistID, nullString(a.Name), nullString(a.Location), nullFloat(a.Latitude), nullFloat(a.Longitude))
	if err != nil {
		return fmt.Errorf("failed to upsert artist %s: %w", a.ArtistID, err)
	}
	return nil
}

// UpsertUser inserts a user or overwrites the existing row with the same user_id
func (t *Tx) UpsertUser(ctx context.Context, u *User) error {
	err := t.exec(ctx, userUpsert, u.UserID, u.FirstName, u.LastName, u.Gender, u.Level)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.UserID, err)
	}
	return nil
}

// UpsertTime inserts a time row or overwrites the existing row with the same start_time
func (t *Tx) UpsertTime(ctx context.Context, td *TimeDimension) error {
	err := t.exec(ctx, timeUpsert, td.StartTime, td.Hour, td.Day, td.Week, td.Month, td.Year, td.Weekday)
	if err != nil {
		return fmt.Errorf("failed to upsert time %s: %w", td.StartTime, err)
	}
	return nil
}

// UpsertSongplay inserts a songplay or overwrites the existing row with the same songplay_id
func (t *Tx) UpsertSongplay(ctx context.Context, sp *Songplay) error {
	err := t.exec(ctx, songplayUpsert,
		sp.SongplayID, sp.StartTime, sp.UserID, sp.Level,
		nullString(sp.SongID), nullString(sp.ArtistID),
		sp.SessionID, sp.Location, sp.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to upsert songplay %s: %w", sp.SongplayID, err)
	}
	return nil
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
