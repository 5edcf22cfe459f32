package parse

import (
	"fmt"
	"time"
)

// isoDate is the layout used for every normalized date in the system.
const isoDate = "2006-01-02"

// DefaultEpoch is the reference date of the upstream scheduling
// system's integer date encoding: day 0 is 1840-12-31.
var DefaultEpoch = time.Date(1840, time.December, 31, 0, 0, 0, 0, time.UTC)

// DateCodec converts between the upstream integer day-offset encoding
// and ISO-8601 date strings. The epoch is fixed at construction; an
// off-by-one here silently corrupts every date from the source, so the
// conversions are pure calendar arithmetic in UTC.
type DateCodec struct {
	epoch time.Time
}

// NewDateCodec builds a codec around the given epoch date. The epoch is
// truncated to midnight UTC so offsets are always whole days.
func NewDateCodec(epoch time.Time) DateCodec {
	y, m, d := epoch.Date()
	return DateCodec{epoch: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// OffsetToDate converts a day offset into an ISO date string.
func (c DateCodec) OffsetToDate(offset int) string {
	return c.epoch.AddDate(0, 0, offset).Format(isoDate)
}

// DateToOffset converts an ISO date string back into a day offset.
func (c DateCodec) DateToOffset(date string) (int, error) {
	d, err := time.ParseInLocation(isoDate, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO date %q: %w", date, err)
	}
	return int(d.Sub(c.epoch).Hours() / 24), nil
}
