package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"callnexy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Campaign{}, &models.ActionRecord{}, &models.Lead{}))
	return db
}

type fakeCaller struct {
	mu      sync.Mutex
	calls   []uint
	failFor map[uint]bool
}

func (f *fakeCaller) PlaceCall(_ context.Context, leadID uint) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, leadID)
	if f.failFor[leadID] {
		return "", "", errors.New("provider rejected call")
	}
	return fmt.Sprintf("vapi-%d", leadID), "call placed", nil
}

func (f *fakeCaller) callCount(leadID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.calls {
		if id == leadID {
			n++
		}
	}
	return n
}

type fakeMessenger struct {
	mu     sync.Mutex
	to     []string
	bodies []string
	fail   bool
}

func (f *fakeMessenger) SendMessage(_ context.Context, _, _, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("messaging provider unavailable")
	}
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestWorker(db *gorm.DB, caller CallPlacer, messenger MessageSender, at time.Time) *ScheduleWorker {
	sw := NewScheduleWorker(db, caller, messenger, nil, Options{
		Location:        opTZ,
		CallCeiling:     3,
		MessageCeiling:  50,
		SendWindow:      2,
		DispatchTimeout: time.Second,
	}, log.New(io.Discard, "", 0))
	sw.now = func() time.Time { return at }
	return sw
}

func offDay(day int) models.DayPlan {
	return models.DayPlan{Day: day, Action: models.ActionOff}
}

func journey(plans ...models.DayPlan) []models.DayPlan {
	byDay := map[int]models.DayPlan{}
	for _, p := range plans {
		byDay[p.Day] = p
	}
	out := make([]models.DayPlan, 0, models.JourneyDays)
	for day := 1; day <= models.JourneyDays; day++ {
		if p, ok := byDay[day]; ok {
			out = append(out, p)
		} else {
			out = append(out, offDay(day))
		}
	}
	return out
}

func runningCampaign(t *testing.T, db *gorm.DB, leadIDs []uint, startedAt time.Time, plans []models.DayPlan) *models.Campaign {
	t.Helper()
	c := &models.Campaign{
		OwnerID:         1,
		Name:            "spring outreach",
		Status:          models.CampaignStatusRunning,
		StartedAt:       &startedAt,
		DayPlans:        plans,
		AssignedLeadIDs: leadIDs,
		PhoneNumberID:   "555000",
		AccessToken:     "token",
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func ledger(t *testing.T, db *gorm.DB, campaignID uint) []models.ActionRecord {
	t.Helper()
	var records []models.ActionRecord
	require.NoError(t, db.Where("campaign_id = ?", campaignID).Order("id").Find(&records).Error)
	return records
}

func TestCallDayPacedDispatch(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 15, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:    1,
		Action: models.ActionCall,
		Slots:  []models.TimeSlot{slot(12, 0, 13, 0, 4)},
	})
	c := runningCampaign(t, db, []uint{11, 12, 13, 14, 15}, started, plans)

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	require.Equal(t, 1, report.Processed)
	assert.Equal(t, models.ActionCall, report.Results[0].Action)

	// At 12:15 in a 12:00-13:00 slot with target 4: floor(0.25*4)+1 = 2 due
	records := ledger(t, db, c.ID)
	require.Len(t, records, 2)
	assert.Equal(t, []uint{11, 12}, caller.calls, "leads are taken in stable cohort order")
	for _, r := range records {
		assert.Equal(t, models.ActionCall, r.ActionType)
		assert.Equal(t, models.ActionStatusCompleted, r.Status)
		assert.Equal(t, 1, r.DayNumber)
	}

	require.NoError(t, db.First(c, c.ID).Error)
	assert.Equal(t, 1, c.CurrentDay)
	assert.Equal(t, 2, c.CallsToday)
	assert.Equal(t, 2, c.TotalCalls)
}

func TestRepeatedTicksAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 15, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:    1,
		Action: models.ActionCall,
		Slots:  []models.TimeSlot{slot(12, 0, 13, 0, 4)},
	})
	c := runningCampaign(t, db, []uint{11, 12, 13, 14, 15}, started, plans)

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	sw.ProcessRunningCampaigns(context.Background())
	sw.ProcessRunningCampaigns(context.Background())
	// A minute later the pace still only expects 2
	sw.now = func() time.Time { return now.Add(time.Minute) }
	sw.ProcessRunningCampaigns(context.Background())

	records := ledger(t, db, c.ID)
	assert.Len(t, records, 2, "no duplicate dispatch per lead per day")

	seen := map[string]bool{}
	for _, r := range records {
		key := fmt.Sprintf("%d-%d-%d-%s", r.CampaignID, r.LeadID, r.DayNumber, r.ActionType)
		assert.False(t, seen[key], "idempotency key %s appeared twice", key)
		seen[key] = true
	}
}

func TestPerTickCeilingBoundsBurst(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	// Late in the slot everything is overdue, but one tick may only do 3
	now := time.Date(2024, 1, 1, 12, 59, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:    1,
		Action: models.ActionCall,
		Slots:  []models.TimeSlot{slot(12, 0, 13, 0, 10)},
	})
	c := runningCampaign(t, db, []uint{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, started, plans)

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	sw.ProcessRunningCampaigns(context.Background())
	assert.Len(t, ledger(t, db, c.ID), 3)

	// The next tick picks up the remainder, again bounded by the ceiling
	sw.ProcessRunningCampaigns(context.Background())
	assert.Len(t, ledger(t, db, c.ID), 6)
}

func TestFailedDispatchRecordedNotRetried(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{failFor: map[uint]bool{11: true}}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 15, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:    1,
		Action: models.ActionCall,
		Slots:  []models.TimeSlot{slot(12, 0, 13, 0, 4)},
	})
	c := runningCampaign(t, db, []uint{11, 12, 13, 14, 15}, started, plans)

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	sw.ProcessRunningCampaigns(context.Background())

	records := ledger(t, db, c.ID)
	require.Len(t, records, 2)
	assert.Equal(t, models.ActionStatusFailed, records[0].Status)
	assert.Contains(t, records[0].Detail, "provider rejected call")
	assert.Equal(t, models.ActionStatusCompleted, records[1].Status)

	// Failure counts as the day's attempt: the lead is never re-contacted
	sw.ProcessRunningCampaigns(context.Background())
	assert.Equal(t, 1, caller.callCount(11))
	assert.Len(t, ledger(t, db, c.ID), 2)
}

func TestOffDayIsNoOp(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, opTZ)

	c := runningCampaign(t, db, []uint{11, 12}, started, journey())

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	require.Equal(t, 1, report.Processed)
	assert.Equal(t, models.ActionOff, report.Results[0].Action)
	assert.Empty(t, caller.calls)
	assert.Empty(t, ledger(t, db, c.ID))

	require.NoError(t, db.First(c, c.ID).Error)
	assert.Equal(t, 1, c.CurrentDay, "off day still records the day number")
	assert.Equal(t, 0, c.TotalCalls)
}

func TestCompletionOnDayOverflow(t *testing.T) {
	db := newTestDB(t)

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, opTZ)

	c := runningCampaign(t, db, []uint{11, 12}, started, journey())

	sw := newTestWorker(db, &fakeCaller{}, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	require.Equal(t, 1, report.Processed)
	assert.Equal(t, "completed", report.Results[0].Action)

	require.NoError(t, db.First(c, c.ID).Error)
	assert.Equal(t, models.CampaignStatusCompleted, c.Status)
	assert.Equal(t, models.JourneyDays, c.CurrentDay, "day freezes at the journey length")
	assert.NotNil(t, c.CompletedAt)
}

func TestCompletionOnCohortExhaustion(t *testing.T) {
	db := newTestDB(t)

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, opTZ)

	c := runningCampaign(t, db, []uint{11, 12}, started, journey())

	// Every assigned lead was already contacted earlier in the run
	for _, leadID := range []uint{11, 12} {
		require.NoError(t, db.Create(&models.ActionRecord{
			CampaignID: c.ID,
			LeadID:     leadID,
			DayNumber:  1,
			ActionType: models.ActionCall,
			Status:     models.ActionStatusCompleted,
		}).Error)
	}

	sw := newTestWorker(db, &fakeCaller{}, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	assert.Contains(t, report.Results[0].Details, "cohort exhausted")

	require.NoError(t, db.First(c, c.ID).Error)
	assert.Equal(t, models.CampaignStatusCompleted, c.Status)
	assert.Equal(t, 3, c.CurrentDay, "completes mid-journey without inflating the day")
}

func TestWhatsAppOutsideSendWindow(t *testing.T) {
	db := newTestDB(t)
	messenger := &fakeMessenger{}

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 15, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:             1,
		Action:          models.ActionWhatsApp,
		MessageTemplate: "Hi {first_name}",
		SendHour:        14,
		SendMinute:      0,
	})
	c := runningCampaign(t, db, []uint{21, 22}, started, plans)

	sw := newTestWorker(db, &fakeCaller{}, messenger, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	assert.Contains(t, report.Results[0].Details, "outside send window")
	assert.Empty(t, messenger.to)
	assert.Empty(t, ledger(t, db, c.ID))
}

func TestWhatsAppBroadcastWithinWindow(t *testing.T) {
	db := newTestDB(t)
	messenger := &fakeMessenger{}

	require.NoError(t, db.Create(&models.Lead{Model: gorm.Model{ID: 21}, Name: "Ada Lovelace", Phone: "+254700000001"}).Error)
	require.NoError(t, db.Create(&models.Lead{Model: gorm.Model{ID: 22}, Name: "No Phone"}).Error)
	require.NoError(t, db.Create(&models.Lead{Model: gorm.Model{ID: 23}, Name: "Grace Hopper", Phone: "+254700000003"}).Error)

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 14, 1, 0, 0, opTZ)

	plans := journey(models.DayPlan{
		Day:             1,
		Action:          models.ActionWhatsApp,
		MessageTemplate: "Hi {first_name}, are you still interested?",
		SendHour:        14,
		SendMinute:      0,
	})
	c := runningCampaign(t, db, []uint{21, 22, 23}, started, plans)

	sw := newTestWorker(db, &fakeCaller{}, messenger, now)
	sw.ProcessRunningCampaigns(context.Background())

	assert.Equal(t, []string{"+254700000001", "+254700000003"}, messenger.to)
	assert.Equal(t, "Hi Ada, are you still interested?", messenger.bodies[0])
	assert.Equal(t, "Hi Grace, are you still interested?", messenger.bodies[1])

	// The lead without a phone is skipped with no ledger entry at all
	records := ledger(t, db, c.ID)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.NotEqual(t, uint(22), r.LeadID)
		assert.Equal(t, models.ActionWhatsApp, r.ActionType)
	}

	// Repeating the tick inside the window does not re-send
	sw.ProcessRunningCampaigns(context.Background())
	assert.Len(t, messenger.to, 2)
	assert.Len(t, ledger(t, db, c.ID), 2)
}

func TestUnusableCampaignSkippedOthersProceed(t *testing.T) {
	db := newTestDB(t)
	caller := &fakeCaller{}

	// Missing start date: unusable, skipped with a logged data error
	broken := &models.Campaign{
		OwnerID:         1,
		Name:            "broken",
		Status:          models.CampaignStatusRunning,
		DayPlans:        journey(),
		AssignedLeadIDs: []uint{1},
	}
	require.NoError(t, db.Create(broken).Error)

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	now := time.Date(2024, 1, 1, 12, 15, 0, 0, opTZ)
	plans := journey(models.DayPlan{
		Day:    1,
		Action: models.ActionCall,
		Slots:  []models.TimeSlot{slot(12, 0, 13, 0, 4)},
	})
	healthy := runningCampaign(t, db, []uint{11, 12, 13}, started, plans)

	// Paused campaigns are not part of the work set at all
	paused := runningCampaign(t, db, []uint{31}, started, journey())
	require.NoError(t, db.Model(paused).Update("status", models.CampaignStatusPaused).Error)

	sw := newTestWorker(db, caller, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	require.Equal(t, 2, report.Processed)

	byID := map[uint]TickResult{}
	for _, r := range report.Results {
		byID[r.CampaignID] = r
	}
	assert.Equal(t, "error", byID[broken.ID].Action)
	assert.Contains(t, byID[broken.ID].Details, "unusable data")
	assert.Len(t, ledger(t, db, healthy.ID), 2, "healthy campaign unaffected by the broken one")
	assert.Empty(t, ledger(t, db, paused.ID))
}

func TestNotStartedCampaignWaits(t *testing.T) {
	db := newTestDB(t)

	started := time.Date(2024, 2, 1, 0, 0, 0, 0, opTZ)
	now := time.Date(2024, 1, 30, 12, 0, 0, 0, opTZ)

	c := runningCampaign(t, db, []uint{11}, started, journey())

	sw := newTestWorker(db, &fakeCaller{}, &fakeMessenger{}, now)
	report := sw.ProcessRunningCampaigns(context.Background())

	assert.Equal(t, "waiting", report.Results[0].Action)
	assert.Empty(t, ledger(t, db, c.ID))
}

func TestRecomputeProgressMatchesLedger(t *testing.T) {
	db := newTestDB(t)

	started := time.Date(2024, 1, 1, 0, 30, 0, 0, opTZ)
	c := runningCampaign(t, db, []uint{11, 12, 13}, started, journey())

	seed := []models.ActionRecord{
		{CampaignID: c.ID, LeadID: 11, DayNumber: 1, ActionType: models.ActionCall, Status: models.ActionStatusCompleted},
		{CampaignID: c.ID, LeadID: 12, DayNumber: 1, ActionType: models.ActionCall, Status: models.ActionStatusFailed},
		{CampaignID: c.ID, LeadID: 11, DayNumber: 2, ActionType: models.ActionWhatsApp, Status: models.ActionStatusCompleted},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	snapshot, err := RecomputeProgress(db, c.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, snapshot.CurrentDay)
	assert.Equal(t, 0, snapshot.CallsToday, "both call attempts were on day 1")
	assert.Equal(t, 1, snapshot.MessagesToday)
	assert.Equal(t, 2, snapshot.TotalCalls, "failed attempts count as attempts")
	assert.Equal(t, 1, snapshot.TotalMessages)
}
