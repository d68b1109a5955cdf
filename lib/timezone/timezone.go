package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Helsinki")
	if err != nil {
		panic(err)
	}
}

// The portal renders every date as dd.MM.yyyy in Finnish local time,
// so parsed due dates and expiration dates are anchored here no matter
// where the process runs.
func Now() time.Time {
	return time.Now().In(Location)
}
