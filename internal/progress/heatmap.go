package progress

import "time"

const (
	// HeatmapWindowDays bounds how far back check-ins are kept in the intensity map.
	HeatmapWindowDays = 180
	// HeatmapRows is one row per weekday.
	HeatmapRows = 7
	// HeatmapCols covers 16 weeks (~112 days).
	HeatmapCols = 16
	// MaxIntensityBand is the top display band; counts at or above it share it.
	MaxIntensityBand = 4
)

// BuildIntensityMap sums check-in counts per local calendar day over the
// trailing window of HeatmapWindowDays ending with today. Records older than the window or dated after
// today are dropped.
func BuildIntensityMap(checkIns []CheckInRecord, now time.Time) map[string]int {
	today := startOfDay(now)
	windowStart := today.AddDate(0, 0, -(HeatmapWindowDays - 1))
	tomorrow := today.AddDate(0, 0, 1)

	intensity := make(map[string]int)
	for _, c := range checkIns {
		if c.Count <= 0 {
			continue
		}
		day := startOfDay(c.Date.In(now.Location()))
		if day.Before(windowStart) || !day.Before(tomorrow) {
			continue
		}
		intensity[DateKey(day)] += c.Count
	}
	return intensity
}

// HeatmapCell is one square of the display grid.
type HeatmapCell struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	Band        int    `json:"band"`
	Interactive bool   `json:"interactive"`
}

// HeatmapGrid is the intensity map projected onto weekday rows and week columns.
// Cells[row][col]; row 0 is Sunday, the last column holds today.
type HeatmapGrid struct {
	Rows  int             `json:"rows"`
	Cols  int             `json:"cols"`
	Start string          `json:"start"`
	Today string          `json:"today"`
	Cells [][]HeatmapCell `json:"cells"`
}

// ProjectHeatmap lays the intensity map out on a 7x16 grid whose last column
// is the week containing today. Days after today are left empty.
func ProjectHeatmap(intensity map[string]int, now time.Time) HeatmapGrid {
	today := startOfDay(now)
	lastWeekStart := today.AddDate(0, 0, -int(today.Weekday()))
	start := lastWeekStart.AddDate(0, 0, -7*(HeatmapCols-1))

	cells := make([][]HeatmapCell, HeatmapRows)
	for row := range cells {
		cells[row] = make([]HeatmapCell, HeatmapCols)
		for col := range cells[row] {
			day := start.AddDate(0, 0, col*7+row)
			key := DateKey(day)
			if day.After(today) {
				cells[row][col] = HeatmapCell{Date: key}
				continue
			}
			count := intensity[key]
			cells[row][col] = HeatmapCell{
				Date:        key,
				Count:       count,
				Band:        IntensityBand(count),
				Interactive: true,
			}
		}
	}

	return HeatmapGrid{
		Rows:  HeatmapRows,
		Cols:  HeatmapCols,
		Start: DateKey(start),
		Today: DateKey(today),
		Cells: cells,
	}
}

// IntensityBand clamps a raw count into the display bands 0..4.
func IntensityBand(count int) int {
	switch {
	case count <= 0:
		return 0
	case count >= MaxIntensityBand:
		return MaxIntensityBand
	default:
		return count
	}
}
