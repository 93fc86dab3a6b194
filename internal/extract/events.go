package extract

import (
	"encoding/json"

	"github.com/franz/sparkify-etl/internal/store"
)

// DefaultPlayMarker is the page value of a song-play event
const DefaultPlayMarker = "NextSong"

// eventRecord is one line of the event-log dataset
type eventRecord struct {
	Ts        json.Number `json:"ts"`
	UserID    Text        `json:"userId"`
	FirstName Text        `json:"firstName"`
	LastName  Text        `json:"lastName"`
	Gender    Text        `json:"gender"`
	Level     Text        `json:"level"`
	Page      Text        `json:"page"`
	Song      Text        `json:"song"`
	Artist    Text        `json:"artist"`
	Length    *float64    `json:"length"`
	SessionID Text        `json:"sessionId"`
	Location  Text        `json:"location"`
	UserAgent Text        `json:"userAgent"`
}

// PlayEvent is a song-play event that passed filtering
type PlayEvent struct {
	Row       int   // zero-based position among the file's records
	Timestamp int64 // epoch milliseconds
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
	Song      Text
	Artist    Text
	Length    *float64
	SessionID string
	Location  string
	UserAgent string
}

// EventBatch holds the play events extracted from one log file, in file order
type EventBatch struct {
	Events     []PlayEvent
	Records    int // records read, all pages
	NonPlay    int // records dropped by the page filter
	MissingIDs int // play records dropped for a null timestamp or user id
}

// EventOptions configures event extraction
type EventOptions struct {
	PlayMarker string // defaults to DefaultPlayMarker
}

// ReadEventFile parses one event-log file and keeps play events that carry
// both a timestamp and a user id. Filtering preserves file order.
func ReadEventFile(path string, opts *EventOptions) (*EventBatch, error) {
	marker := DefaultPlayMarker
	if opts != nil && opts.PlayMarker != "" {
		marker = opts.PlayMarker
	}

	batch := &EventBatch{}
	err := readRecords(path, func() any { return &eventRecord{} }, func(index int, rec any) error {
		r := rec.(*eventRecord)
		batch.Records++

		if !r.Page.Valid || r.Page.Value != marker {
			batch.NonPlay++
			return nil
		}

		ts, ok := numberInt64(r.Ts)
		if !ok || !r.UserID.Present() {
			batch.MissingIDs++
			return nil
		}

		batch.Events = append(batch.Events, PlayEvent{
			Row:       index,
			Timestamp: ts,
			UserID:    r.UserID.Value,
			FirstName: r.FirstName.Value,
			LastName:  r.LastName.Value,
			Gender:    r.Gender.Value,
			Level:     r.Level.Value,
			Song:      r.Song,
			Artist:    r.Artist,
			Length:    r.Length,
			SessionID: r.SessionID.Value,
			Location:  r.Location.Value,
			UserAgent: r.UserAgent.Value,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// StartTime returns the event's time dimension key
func (e *PlayEvent) StartTime() string {
	return StartTime(e.Timestamp)
}

// Time derives the event's time dimension row
func (e *PlayEvent) Time() store.TimeDimension {
	return NewTimeDimension(e.Timestamp)
}

// User returns the user row carried by the event
func (e *PlayEvent) User() store.User {
	return store.User{
		UserID:    e.UserID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Gender:    e.Gender,
		Level:     e.Level,
	}
}

// LookupKey returns the (title, artist name, duration) triple used to
// resolve the played song. ok is false when any part is null, in which
// case no song can match.
func (e *PlayEvent) LookupKey() (title, artist string, duration float64, ok bool) {
	if !e.Song.Valid || !e.Artist.Valid || e.Length == nil {
		return "", "", 0, false
	}
	return e.Song.Value, e.Artist.Value, *e.Length, true
}

// Songplay builds the fact row for the event. songID and artistID are nil
// when the lookup missed.
func (e *PlayEvent) Songplay(songplayID string, songID, artistID *string) store.Songplay {
	return store.Songplay{
		SongplayID: songplayID,
		StartTime:  e.StartTime(),
		UserID:     e.UserID,
		Level:      e.Level,
		SongID:     songID,
		ArtistID:   artistID,
		SessionID:  e.SessionID,
		Location:   e.Location,
		UserAgent:  e.UserAgent,
	}
}
