package extract

import (
	"encoding/json"

	"github.com/franz/sparkify-etl/internal/store"
)

// songRecord is one line of the song-metadata dataset
type songRecord struct {
	SongID          Text        `json:"song_id"`
	Title           Text        `json:"title"`
	ArtistID        Text        `json:"artist_id"`
	Year            json.Number `json:"year"`
	Duration        *float64    `json:"duration"`
	ArtistName      Text        `json:"artist_name"`
	ArtistLocation  Text        `json:"artist_location"`
	ArtistLatitude  *float64    `json:"artist_latitude"`
	ArtistLongitude *float64    `json:"artist_longitude"`
}

// SongBatch holds the song and artist rows extracted from one file
type SongBatch struct {
	Songs   []store.Song
	Artists []store.Artist
	Skipped int // rows without song_id or artist_id
}

// ReadSongFile parses one song-metadata file. Rows missing a song or
// artist identifier are dropped; every other row yields exactly one Song
// and one Artist.
func ReadSongFile(path string) (*SongBatch, error) {
	batch := &SongBatch{}

	err := readRecords(path, func() any { return &songRecord{} }, func(_ int, rec any) error {
		r := rec.(*songRecord)
		if !r.SongID.Present() || !r.ArtistID.Present() {
			batch.Skipped++
			return nil
		}

		var year *int
		if y, ok := numberInt64(r.Year); ok {
			v := int(y)
			year = &v
		}

		batch.Songs = append(batch.Songs, store.Song{
			SongID:   r.SongID.Value,
			Title:    r.Title.Ptr(),
			ArtistID: r.ArtistID.Value,
			Year:     year,
			Duration: r.Duration,
		})
		batch.Artists = append(batch.Artists, store.Artist{
			ArtistID:  r.ArtistID.Value,
			Name:      r.ArtistName.Ptr(),
			Location:  r.ArtistLocation.Ptr(),
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}
