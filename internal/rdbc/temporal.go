package rdbc

import "time"

// Temporal values crossing the SPI are exchanged as calendar/clock components
// rather than instants. The bridge adapters convert to and from time.Time at
// the boundary.

type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

type LocalTime struct {
	Hour   int
	Minute int
	Second int
	Nano   int
}

type LocalDateTime struct {
	Date LocalDate
	Time LocalTime
}

func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

func TimeOf(t time.Time) LocalTime {
	return LocalTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nano: t.Nanosecond()}
}

func DateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{Date: DateOf(t), Time: TimeOf(t)}
}

func (d LocalDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (t LocalTime) On(d LocalDate, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Nano, loc)
}

func (dt LocalDateTime) In(loc *time.Location) time.Time {
	return dt.Time.On(dt.Date, loc)
}
