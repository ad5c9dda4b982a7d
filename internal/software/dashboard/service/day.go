package service

import (
	"time"

	"github.com/jinzhu/now"
)

// dayRange returns [start, end) of the calendar day containing t in loc.
func dayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := now.With(t.In(loc)).BeginningOfDay()
	return start, start.AddDate(0, 0, 1)
}
