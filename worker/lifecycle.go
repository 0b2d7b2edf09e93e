package worker

import (
	"callnexy/models"
	"callnexy/utils"

	"gorm.io/gorm"
)

// completeCampaign transitions a running campaign to completed. Completion is
// terminal: the current day freezes at min(day, 7) and never moves again.
func (sw *ScheduleWorker) completeCampaign(c *models.Campaign, day int) error {
	if c.Status == models.CampaignStatusCompleted {
		return nil
	}

	currentDay := day
	if currentDay > models.JourneyDays {
		currentDay = models.JourneyDays
	}
	if currentDay < c.CurrentDay {
		currentDay = c.CurrentDay
	}

	updates := map[string]interface{}{
		"status":       models.CampaignStatusCompleted,
		"completed_at": sw.now(),
		"current_day":  currentDay,
	}
	if err := sw.DB.Model(c).Updates(updates).Error; err != nil {
		return &StoreError{Op: "complete campaign", Cause: err}
	}
	c.Status = models.CampaignStatusCompleted
	c.CurrentDay = currentDay

	utils.LogEvent("campaign_completed", map[string]interface{}{
		"campaign_id": c.ID,
		"final_day":   currentDay,
	})
	return nil
}

// cohortExhausted reports whether every assigned lead already holds at least
// one ledger record for this campaign, counted across the whole run.
func (sw *ScheduleWorker) cohortExhausted(c *models.Campaign) (bool, error) {
	var contacted int64
	err := sw.DB.Model(&models.ActionRecord{}).
		Where("campaign_id = ?", c.ID).
		Distinct("lead_id").
		Count(&contacted).Error
	if err != nil {
		return false, &StoreError{Op: "count contacted leads", Cause: err}
	}
	return contacted >= int64(len(c.AssignedLeadIDs)), nil
}

// ProgressSnapshot is the campaign progress cache recomputed from the ledger
type ProgressSnapshot struct {
	CurrentDay    int `json:"current_day"`
	CallsToday    int `json:"calls_today"`
	MessagesToday int `json:"messages_today"`
	TotalCalls    int `json:"total_calls"`
	TotalMessages int `json:"total_messages"`
}

// RecomputeProgress rebuilds the progress counters from the action ledger.
// The campaign row only caches these values; the ledger stays authoritative.
func RecomputeProgress(db *gorm.DB, campaignID uint, day int) (*ProgressSnapshot, error) {
	snapshot := &ProgressSnapshot{CurrentDay: day}
	if snapshot.CurrentDay > models.JourneyDays {
		snapshot.CurrentDay = models.JourneyDays
	}

	counts := []struct {
		dest       *int
		actionType string
		todayOnly  bool
	}{
		{&snapshot.CallsToday, models.ActionCall, true},
		{&snapshot.MessagesToday, models.ActionWhatsApp, true},
		{&snapshot.TotalCalls, models.ActionCall, false},
		{&snapshot.TotalMessages, models.ActionWhatsApp, false},
	}
	for _, c := range counts {
		query := db.Model(&models.ActionRecord{}).
			Where("campaign_id = ? AND action_type = ?", campaignID, c.actionType)
		if c.todayOnly {
			query = query.Where("day_number = ?", day)
		}
		var n int64
		if err := query.Count(&n).Error; err != nil {
			return nil, &StoreError{Op: "recompute progress", Cause: err}
		}
		*c.dest = int(n)
	}
	return snapshot, nil
}

// updateProgress refreshes the cached counters on the campaign row. The write
// is last-writer-wins on purpose: the cache is always recomputable, and the
// current day may only move forward.
func (sw *ScheduleWorker) updateProgress(c *models.Campaign, day int) error {
	snapshot, err := RecomputeProgress(sw.DB, c.ID, day)
	if err != nil {
		return err
	}
	if snapshot.CurrentDay < c.CurrentDay {
		snapshot.CurrentDay = c.CurrentDay
	}

	updates := map[string]interface{}{
		"current_day":    snapshot.CurrentDay,
		"calls_today":    snapshot.CallsToday,
		"messages_today": snapshot.MessagesToday,
		"total_calls":    snapshot.TotalCalls,
		"total_messages": snapshot.TotalMessages,
	}
	if err := sw.DB.Model(c).Updates(updates).Error; err != nil {
		return &StoreError{Op: "update progress", Cause: err}
	}
	c.CurrentDay = snapshot.CurrentDay
	return nil
}
