package models

// Resolution is an aggregation granularity.
type Resolution string

const (
	ResolutionHourly      Resolution = "1h"
	ResolutionThreeHourly Resolution = "3h"
	ResolutionDaily       Resolution = "1d"
	ResolutionDailyMin    Resolution = "1d_min"
	ResolutionDailyMax    Resolution = "1d_max"
)

// Label returns the trace-label suffix of a mean resolution.
func (r Resolution) Label() string {
	switch r {
	case ResolutionHourly:
		return "1ч"
	case ResolutionThreeHourly:
		return "3ч"
	case ResolutionDaily, ResolutionDailyMin, ResolutionDailyMax:
		return "1д"
	}
	return string(r)
}
