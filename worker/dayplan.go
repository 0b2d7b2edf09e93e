package worker

import (
	"time"

	"callnexy/models"
)

// CampaignDay computes which 1-based journey day now falls on for a campaign
// started at start. Both instants are reduced to midnight in the fixed
// operating timezone before differencing, so the answer only moves when the
// calendar date moves: <= 0 means the campaign has not started yet, anything
// above models.JourneyDays means the journey is over.
func CampaignDay(start, now time.Time, loc *time.Location) int {
	startDate := midnight(start.In(loc))
	today := midnight(now.In(loc))
	return int(today.Sub(startDate)/(24*time.Hour)) + 1
}

// JourneyFinished reports whether a resolved day is past the end of the plan
func JourneyFinished(day int) bool {
	return day > models.JourneyDays
}

// MinutesOfDay returns minutes since midnight of t in the operating timezone
func MinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
