package worker

import "callnexy/models"

// ActiveSlot returns the slot whose window contains nowMinutes, or nil when
// no slot is active. Windows are half-open: start <= now < end.
func ActiveSlot(slots []models.TimeSlot, nowMinutes int) *models.TimeSlot {
	for i := range slots {
		if nowMinutes >= slots[i].StartMinutes() && nowMinutes < slots[i].EndMinutes() {
			return &slots[i]
		}
	}
	return nil
}

// ExpectedByNow converts elapsed slot time into the number of dispatches that
// should have happened by now for an even pace. The +1 guarantees the first
// dispatch is due the moment the slot opens; the result never exceeds the
// slot target.
func ExpectedByNow(slot models.TimeSlot, nowMinutes int) int {
	elapsed := nowMinutes - slot.StartMinutes()
	duration := slot.EndMinutes() - slot.StartMinutes()
	if duration <= 0 {
		return 0
	}
	expected := (elapsed*slot.TargetCount)/duration + 1
	if expected > slot.TargetCount {
		expected = slot.TargetCount
	}
	return expected
}

// DueCount is how many dispatches are owed right now: the pacing expectation
// minus what the ledger already shows, never negative, capped at the per-tick
// ceiling so one tick cannot burst the external API. The remainder is picked
// up by later ticks.
func DueCount(slot models.TimeSlot, nowMinutes, actual, ceiling int) int {
	due := ExpectedByNow(slot, nowMinutes) - actual
	if due < 0 {
		due = 0
	}
	if due > ceiling {
		due = ceiling
	}
	return due
}
