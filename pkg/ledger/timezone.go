package ledger

import "time"

const mexicoCityTimeZoneName = "America/Mexico_City"

var mexicoCityLocation = loadMexicoCityLocation()

func loadMexicoCityLocation() *time.Location {
	location, err := time.LoadLocation(mexicoCityTimeZoneName)
	if err != nil {
		// Mexico City has not observed DST since 2022.
		return time.FixedZone(mexicoCityTimeZoneName, -6*60*60)
	}
	return location
}

// NowInMexicoCity returns current time in America/Mexico_City.
func NowInMexicoCity() time.Time {
	return time.Now().In(mexicoCityLocation)
}

func nowTimestamp() string {
	return NowInMexicoCity().Format(timestampLayout)
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)
