// Package season maps calendar dates onto the four maintenance seasons
// and derives due-date driven task attributes.
package season

import "time"

type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
	Winter Season = "Winter"
)

// All lists the seasons in calendar order starting from Spring.
var All = []Season{Spring, Summer, Autumn, Winter}

func Valid(s Season) bool {
	switch s {
	case Spring, Summer, Autumn, Winter:
		return true
	}
	return false
}

// Of returns the season a date falls in: Mar-May Spring, Jun-Aug Summer,
// Sep-Nov Autumn, Dec-Feb Winter.
func Of(date time.Time) Season {
	switch date.Month() {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Autumn
	default:
		return Winter
	}
}

// Current returns the season of now.
func Current(now time.Time) Season {
	return Of(now)
}

// truncate drops the time-of-day component so comparisons are date-only.
func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsOverdue reports whether an uncompleted due date has passed. Completed
// work is never overdue.
func IsOverdue(completed bool, dueDate, today time.Time) bool {
	if completed {
		return false
	}
	return truncate(dueDate).Before(truncate(today))
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return truncate(a).Equal(truncate(b))
}
