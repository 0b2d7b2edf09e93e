package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"callnexy/models"
	"callnexy/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options carries the pacing configuration for one worker instance. It is
// passed in explicitly so the scheduler never reads mutable globals mid-tick.
type Options struct {
	Location        *time.Location
	CallCeiling     int
	MessageCeiling  int
	SendWindow      int // minutes either side of a scheduled send
	DispatchTimeout time.Duration
}

// ScheduleWorker drives every running campaign through its 7-day journey.
// One invocation of ProcessRunningCampaigns is one tick; the worker keeps no
// state between ticks, everything is re-derived from the database.
type ScheduleWorker struct {
	DB        *gorm.DB
	Caller    CallPlacer
	Messenger MessageSender
	Lease     *CampaignLease // nil disables the advisory lease
	Opts      Options
	Logger    *log.Logger

	now func() time.Time
}

func NewScheduleWorker(db *gorm.DB, caller CallPlacer, messenger MessageSender, lease *CampaignLease, opts Options, logger *log.Logger) *ScheduleWorker {
	return &ScheduleWorker{
		DB:        db,
		Caller:    caller,
		Messenger: messenger,
		Lease:     lease,
		Opts:      opts,
		Logger:    logger,
		now:       time.Now,
	}
}

// TickResult is the per-campaign line of the tick report
type TickResult struct {
	CampaignID   uint   `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Action       string `json:"action"`
	Details      string `json:"details"`
}

// TickReport aggregates one tick across all running campaigns
type TickReport struct {
	RunID     string       `json:"run_id"`
	Processed int          `json:"processed"`
	Results   []TickResult `json:"results"`
}

// ProcessRunningCampaigns executes one tick. Campaigns are processed
// independently: a failure or panic in one is reported in its result line and
// never aborts the others. The report is best-effort by design.
func (sw *ScheduleWorker) ProcessRunningCampaigns(ctx context.Context) *TickReport {
	report := &TickReport{RunID: uuid.New().String(), Results: []TickResult{}}

	var campaigns []models.Campaign
	if err := sw.DB.Where("status = ?", models.CampaignStatusRunning).Find(&campaigns).Error; err != nil {
		utils.LogError("tick_load_campaigns", err, map[string]interface{}{"run_id": report.RunID})
		return report
	}

	for i := range campaigns {
		result := sw.processCampaignSafe(ctx, &campaigns[i])
		report.Results = append(report.Results, result)
		report.Processed++
	}

	sw.Logger.Printf("tick %s processed %d campaign(s)", report.RunID, report.Processed)
	return report
}

// processCampaignSafe is the per-campaign isolation boundary: errors become
// result lines, panics are recovered and reported the same way.
func (sw *ScheduleWorker) processCampaignSafe(ctx context.Context, c *models.Campaign) (result TickResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing campaign %d: %v", c.ID, r)
			utils.LogError("campaign_tick_panic", err, map[string]interface{}{"campaign_id": c.ID})
			result = TickResult{CampaignID: c.ID, CampaignName: c.Name, Action: "error", Details: err.Error()}
		}
	}()

	result, err := sw.processCampaign(ctx, c)
	if err != nil {
		utils.LogError("campaign_tick_failed", err, map[string]interface{}{
			"campaign_id": c.ID,
			"campaign":    c.Name,
		})
		if result.Action == "" {
			result.Action = "error"
		}
		result.Details = err.Error()
	}
	return result
}

func (sw *ScheduleWorker) processCampaign(ctx context.Context, c *models.Campaign) (TickResult, error) {
	res := TickResult{CampaignID: c.ID, CampaignName: c.Name}

	// Reject unusable campaigns before touching anything (load-time
	// validation should have caught these, but the row may predate it)
	if c.StartedAt == nil {
		return res, &CampaignDataError{CampaignID: c.ID, Reason: "missing start date"}
	}
	if err := c.ValidateJourney(); err != nil {
		return res, &CampaignDataError{CampaignID: c.ID, Reason: err.Error()}
	}
	if len(c.AssignedLeadIDs) == 0 {
		return res, &CampaignDataError{CampaignID: c.ID, Reason: "no assigned leads"}
	}

	if sw.Lease != nil {
		acquired, err := sw.Lease.Acquire(ctx, c.ID)
		if err != nil {
			// A lease outage must not halt dispatch; fall back to the
			// documented overlap tolerance.
			sw.Logger.Printf("lease unavailable for campaign %d: %v", c.ID, err)
		} else if !acquired {
			res.Action = "skipped"
			res.Details = "lease held by another tick"
			return res, nil
		} else {
			defer sw.Lease.Release(ctx, c.ID)
		}
	}

	now := sw.now()
	day := CampaignDay(*c.StartedAt, now, sw.Opts.Location)
	if day <= 0 {
		res.Action = "waiting"
		res.Details = fmt.Sprintf("campaign starts in %d day(s)", 1-day)
		return res, nil
	}
	if JourneyFinished(day) {
		if err := sw.completeCampaign(c, day); err != nil {
			return res, err
		}
		res.Action = "completed"
		res.Details = "journey finished"
		return res, nil
	}

	plan := c.PlanForDay(day)
	res.Action = plan.Action
	nowMinutes := MinutesOfDay(now, sw.Opts.Location)

	var detail string
	var err error
	switch plan.Action {
	case models.ActionCall:
		detail, err = sw.dispatchCalls(ctx, c, day, plan, nowMinutes)
	case models.ActionWhatsApp:
		detail, err = sw.dispatchMessages(ctx, c, day, plan, nowMinutes)
	case models.ActionOff:
		detail = "off day"
	}
	if err != nil {
		return res, err
	}
	res.Details = detail

	if err := sw.updateProgress(c, day); err != nil {
		return res, err
	}

	exhausted, err := sw.cohortExhausted(c)
	if err != nil {
		return res, err
	}
	if exhausted {
		if err := sw.completeCampaign(c, day); err != nil {
			return res, err
		}
		res.Details = detail + "; cohort exhausted, campaign completed"
	}
	return res, nil
}
