// Package timecodec converts between calendar time and the engine clock: a
// fractional count of days since 1899-12-30T00:00:00.
package timecodec

import (
	"math"
	"time"
)

const (
	SecondsPerDay = 86400

	MinYear = 1
	MaxYear = 9999
)

// epochDays is the civil day number of 1899-12-30, the engine's day zero.
var epochDays = daysFromCivil(1899, 12, 30)

// Encode maps the wall-clock fields of t to the engine clock. The location
// of t is ignored and sub-second precision is truncated.
func Encode(t time.Time) float64 {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return EncodeDate(y, int(m), d, hh, mm, ss)
}

func EncodeDate(year, month, day, hour, minute, second int) float64 {
	days := daysFromCivil(int64(year), int64(month), int64(day)) - epochDays
	secs := hour*3600 + minute*60 + second
	return float64(days) + float64(secs)/SecondsPerDay
}

// Decode is the inverse of Encode. The fractional part is rounded to the
// nearest whole second and the result is in UTC.
func Decode(v float64) time.Time {
	p := DecodeParts(v)
	return time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, p.Second, 0, time.UTC)
}

type Parts struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	// DayOfWeek follows the engine convention: 1 = Sunday ... 7 = Saturday.
	DayOfWeek int
}

func DecodeParts(v float64) Parts {
	total := int64(math.Floor(v*SecondsPerDay + 0.5))
	days := floorDiv(total, SecondsPerDay)
	rem := int(total - days*SecondsPerDay)

	y, m, d := civilFromDays(days + epochDays)
	return Parts{
		Year:      int(y),
		Month:     int(m),
		Day:       int(d),
		Hour:      rem / 3600,
		Minute:    rem % 3600 / 60,
		Second:    rem % 60,
		DayOfWeek: int(floorMod(days+6, 7)) + 1,
	}
}

// Days converts an elapsed duration into clock units.
func Days(d time.Duration) float64 {
	return d.Seconds() / SecondsPerDay
}

// Duration converts elapsed clock units into a duration rounded to the second.
func Duration(days float64) time.Duration {
	return time.Duration(math.Floor(days*SecondsPerDay+0.5)) * time.Second
}

// InRange reports whether t falls within the years the codec round-trips.
func InRange(t time.Time) bool {
	y := t.Year()
	return y >= MinYear && y <= MaxYear
}

// daysFromCivil returns the number of days since 1970-01-01 of a proleptic
// Gregorian date.
func daysFromCivil(y, m, d int64) int64 {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int64) (y, m, d int64) {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
