// Package analytics shapes the backend's admin analytics payload for the dashboard panels.
package analytics

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Report is the raw payload of the backend's admin analytics endpoint.
type Report struct {
	TotalUsers    int          `json:"totalUsers"`
	TotalSpeakers int          `json:"totalSpeakers"`
	TotalBookings int          `json:"totalBookings"`
	RevenueCents  int64        `json:"revenueCents"`
	DailyBookings []DailyCount `json:"dailyBookings"`
}

type Dashboard struct {
	TotalUsers    int
	TotalSpeakers int
	TotalBookings int
	Revenue       string
	Series        []DailyCount // One entry per day in the window, oldest first
	WindowTotal   int
	DailyAverage  float64
}

// Shape builds a gap-free series covering the last days days up to and
// including now's date. Counts outside the window are ignored and
// duplicate days are summed.
func Shape(r Report, days int, now time.Time) Dashboard {
	if days < 1 {
		days = 1
	}

	counts := make(map[string]int, len(r.DailyBookings))
	for _, d := range r.DailyBookings {
		t, err := time.Parse(dayLayout, d.Day)
		if err != nil {
			continue
		}
		counts[t.Format(dayLayout)] += d.Count
	}

	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	series := make([]DailyCount, 0, days)
	total := 0
	for i := days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i).Format(dayLayout)
		c := counts[day]
		total += c
		series = append(series, DailyCount{Day: day, Count: c})
	}

	return Dashboard{
		TotalUsers:    r.TotalUsers,
		TotalSpeakers: r.TotalSpeakers,
		TotalBookings: r.TotalBookings,
		Revenue:       FormatCents(r.RevenueCents),
		Series:        series,
		WindowTotal:   total,
		DailyAverage:  float64(total) / float64(days),
	}
}

// FormatCents renders an amount in cents as dollars, e.g. 123456 -> "$1234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
