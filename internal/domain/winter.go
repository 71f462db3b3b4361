package domain

import (
	"fmt"
	"time"
)

// winterMonths are the months of one winter season in order: November and
// December of the starting year, then January through April of the next.
var winterMonths = []time.Month{time.November, time.December, time.January, time.February, time.March, time.April}

// WinterRange returns the month-resolution timestamps covering every winter
// from startYear to endYear. WinterRange(2018, 2020) yields Nov 2018-Apr 2019
// followed by Nov 2019-Apr 2020. All timestamps are the first of the month,
// UTC.
func WinterRange(startYear, endYear int) ([]time.Time, error) {
	if endYear <= startYear {
		return nil, fmt.Errorf("winter range: end year %d must follow start year %d", endYear, startYear)
	}
	var months []time.Time
	for y := startYear; y < endYear; y++ {
		for _, m := range winterMonths {
			year := y
			if m <= time.April {
				year = y + 1
			}
			months = append(months, time.Date(year, m, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	return months, nil
}

// OneWinter returns the months of the single winter starting in startYear.
func OneWinter(startYear int) []time.Time {
	months, _ := WinterRange(startYear, startYear+1)
	return months
}
