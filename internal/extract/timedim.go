package extract

import (
	"strconv"
	"time"

	"github.com/franz/sparkify-etl/internal/store"
)

// StartTime encodes an epoch-millisecond timestamp as the time dimension key
func StartTime(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// NewTimeDimension derives the calendar breakdown of an epoch-millisecond
// timestamp in UTC. Month and weekday are numeric; weekday counts from
// Monday=0 to Sunday=6.
func NewTimeDimension(ms int64) store.TimeDimension {
	t := time.UnixMilli(ms).UTC()
	_, week := t.ISOWeek()

	return store.TimeDimension{
		StartTime: StartTime(ms),
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}
