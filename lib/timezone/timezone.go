package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// the scrape target is japanese, fall back to a fixed
		// offset when tzdata is unavailable
		Location = time.FixedZone("JST", 9*60*60)
	}
}

// force timezone to be JST because the scrape target rolls its day
// over in japan time, running on a UTC server would otherwise shift
// the date key by up to 9 hours
func Now() time.Time {
	return time.Now().In(Location)
}

// Today returns midnight of the current JST day.
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, Location)
}
