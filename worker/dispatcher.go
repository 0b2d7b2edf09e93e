package worker

import (
	"context"
	"fmt"

	"callnexy/models"
	"callnexy/utils"
)

// CallPlacer places one outbound call for a lead. Implementations must honor
// the context deadline; a stuck collaborator cannot be allowed to stall the
// whole tick.
type CallPlacer interface {
	PlaceCall(ctx context.Context, leadID uint) (callID string, message string, err error)
}

// MessageSender delivers one WhatsApp message through the messaging
// collaborator using the campaign's own credentials.
type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumberID, accessToken, to, body string) error
}

// dispatchCalls paces call placement across the day's time slots. Every
// attempt appends exactly one ledger record, success or failure, so a lead is
// never contacted twice on the same day.
func (sw *ScheduleWorker) dispatchCalls(ctx context.Context, c *models.Campaign, day int, plan *models.DayPlan, nowMinutes int) (string, error) {
	slot := ActiveSlot(plan.Slots, nowMinutes)
	if slot == nil {
		return "waiting for next time slot", nil
	}

	actioned, err := sw.actionedLeads(c.ID, day, models.ActionCall)
	if err != nil {
		return "", err
	}

	due := DueCount(*slot, nowMinutes, len(actioned), sw.Opts.CallCeiling)
	if due == 0 {
		return fmt.Sprintf("slot %s on pace, %d dispatched so far", slot, len(actioned)), nil
	}

	dispatched, failed := 0, 0
	for _, leadID := range c.AssignedLeadIDs {
		if dispatched == due {
			break
		}
		if actioned[leadID] {
			continue
		}

		status := models.ActionStatusCompleted
		callCtx, cancel := context.WithTimeout(ctx, sw.Opts.DispatchTimeout)
		callID, message, err := sw.Caller.PlaceCall(callCtx, leadID)
		cancel()

		var detail string
		if err != nil {
			status = models.ActionStatusFailed
			detail = (&DispatchError{LeadID: leadID, Cause: err}).Error()
			failed++
		} else {
			detail = message
			if callID != "" {
				detail = fmt.Sprintf("%s (call %s)", message, callID)
			}
		}

		if err := sw.appendRecord(c.ID, leadID, day, models.ActionCall, status, detail); err != nil {
			return "", err
		}
		dispatched++
	}

	return fmt.Sprintf("slot %s: dispatched %d call(s), %d failed", slot, dispatched, failed), nil
}

// dispatchMessages fires the day's WhatsApp broadcast. Unlike calls this is
// not paced: it only runs within the ± window around the configured send time
// and then drains un-actioned leads up to the batch ceiling per tick. Leads
// without a phone are skipped silently: no action occurred, so none is logged.
func (sw *ScheduleWorker) dispatchMessages(ctx context.Context, c *models.Campaign, day int, plan *models.DayPlan, nowMinutes int) (string, error) {
	sendMinutes := plan.SendHour*60 + plan.SendMinute
	diff := nowMinutes - sendMinutes
	if diff < 0 {
		diff = -diff
	}
	if diff > sw.Opts.SendWindow {
		return fmt.Sprintf("outside send window, scheduled %02d:%02d", plan.SendHour, plan.SendMinute), nil
	}

	actioned, err := sw.actionedLeads(c.ID, day, models.ActionWhatsApp)
	if err != nil {
		return "", err
	}

	sent, failed, skipped := 0, 0, 0
	for _, leadID := range c.AssignedLeadIDs {
		if sent+failed == sw.Opts.MessageCeiling {
			break
		}
		if actioned[leadID] {
			continue
		}

		var lead models.Lead
		if err := sw.DB.First(&lead, leadID).Error; err != nil || lead.Phone == "" {
			skipped++
			continue
		}

		body := utils.RenderTemplate(plan.MessageTemplate, lead)

		status := models.ActionStatusCompleted
		detail := "message sent"
		msgCtx, cancel := context.WithTimeout(ctx, sw.Opts.DispatchTimeout)
		err := sw.Messenger.SendMessage(msgCtx, c.PhoneNumberID, c.AccessToken, lead.Phone, body)
		cancel()

		if err != nil {
			status = models.ActionStatusFailed
			detail = (&DispatchError{LeadID: leadID, Cause: err}).Error()
			failed++
		} else {
			sent++
		}

		if err := sw.appendRecord(c.ID, leadID, day, models.ActionWhatsApp, status, detail); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("broadcast: %d sent, %d failed, %d skipped", sent, failed, skipped), nil
}

// actionedLeads returns the set of leads that already hold a ledger record
// for this campaign day and action type.
func (sw *ScheduleWorker) actionedLeads(campaignID uint, day int, actionType string) (map[uint]bool, error) {
	var leadIDs []uint
	err := sw.DB.Model(&models.ActionRecord{}).
		Where("campaign_id = ? AND day_number = ? AND action_type = ?", campaignID, day, actionType).
		Pluck("lead_id", &leadIDs).Error
	if err != nil {
		return nil, &StoreError{Op: "load actioned leads", Cause: err}
	}

	actioned := make(map[uint]bool, len(leadIDs))
	for _, id := range leadIDs {
		actioned[id] = true
	}
	return actioned, nil
}

func (sw *ScheduleWorker) appendRecord(campaignID, leadID uint, day int, actionType, status, detail string) error {
	record := models.ActionRecord{
		CampaignID: campaignID,
		LeadID:     leadID,
		DayNumber:  day,
		ActionType: actionType,
		Status:     status,
		Detail:     detail,
	}
	if err := sw.DB.Create(&record).Error; err != nil {
		return &StoreError{Op: "append action record", Cause: err}
	}
	return nil
}
