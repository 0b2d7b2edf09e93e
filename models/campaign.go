package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Actions a single journey day can carry
const (
	ActionCall     = "call"
	ActionWhatsApp = "whatsapp"
	ActionOff      = "off"
)

// Campaign statuses
const (
	CampaignStatusScheduled = "scheduled"
	CampaignStatusRunning   = "running"
	CampaignStatusCompleted = "completed"
	CampaignStatusPaused    = "paused"
)

// JourneyDays is the fixed length of every campaign journey
const JourneyDays = 7

// Campaign represents a 7-day outbound drip campaign over a frozen lead cohort
type Campaign struct {
	gorm.Model
	OwnerID uint   `gorm:"not null;index" json:"owner_id" validate:"required"`
	Name    string `gorm:"not null" json:"name" validate:"required,min=1,max=120"`

	// Scheduling
	Status      string     `gorm:"default:'scheduled'" json:"status"` // scheduled, running, completed, paused
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Journey definition, exactly 7 entries once running
	DayPlans        []DayPlan `gorm:"type:jsonb;serializer:json" json:"day_plans" validate:"dive"`
	AssignedLeadIDs []uint    `gorm:"type:jsonb;serializer:json" json:"assigned_lead_ids"`

	// WhatsApp Cloud API credentials, opaque to the scheduler
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"-"`

	// Progress cache (denormalized; the action ledger is authoritative)
	CurrentDay    int `gorm:"default:0" json:"current_day"`
	CallsToday    int `gorm:"default:0" json:"calls_today"`
	MessagesToday int `gorm:"default:0" json:"messages_today"`
	TotalCalls    int `gorm:"default:0" json:"total_calls"`
	TotalMessages int `gorm:"default:0" json:"total_messages"`
}

// DayPlan configures one day of the journey
type DayPlan struct {
	Day    int    `json:"day" validate:"min=1,max=7"`
	Action string `json:"action" validate:"required,oneof=call whatsapp off"`

	// Call days: ordered pacing slots
	Slots []TimeSlot `json:"slots,omitempty" validate:"dive"`

	// WhatsApp days: template plus scheduled send time
	MessageTemplate string `json:"message_template,omitempty"`
	SendHour        int    `json:"send_hour,omitempty" validate:"min=0,max=23"`
	SendMinute      int    `json:"send_minute,omitempty" validate:"min=0,max=59"`
}

// TimeSlot is a bounded time-of-day window with a target dispatch count
type TimeSlot struct {
	StartHour   int `json:"start_hour" validate:"min=0,max=23"`
	StartMinute int `json:"start_minute" validate:"min=0,max=59"`
	EndHour     int `json:"end_hour" validate:"min=0,max=23"`
	EndMinute   int `json:"end_minute" validate:"min=0,max=59"`
	TargetCount int `json:"target_count" validate:"min=1"`
}

// StartMinutes returns the slot start as minutes since midnight
func (s TimeSlot) StartMinutes() int {
	return s.StartHour*60 + s.StartMinute
}

// EndMinutes returns the slot end as minutes since midnight
func (s TimeSlot) EndMinutes() int {
	return s.EndHour*60 + s.EndMinute
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", s.StartHour, s.StartMinute, s.EndHour, s.EndMinute)
}

// PlanForDay returns the plan for a 1-based journey day, or nil
func (c *Campaign) PlanForDay(day int) *DayPlan {
	for i := range c.DayPlans {
		if c.DayPlans[i].Day == day {
			return &c.DayPlans[i]
		}
	}
	return nil
}

// ValidateJourney checks the structural rules the validator tags cannot express:
// exactly 7 plans numbered 1..7 in order, call days carry usable slots and
// whatsapp days carry a template.
func (c *Campaign) ValidateJourney() error {
	if len(c.DayPlans) != JourneyDays {
		return fmt.Errorf("journey must have exactly %d day plans, got %d", JourneyDays, len(c.DayPlans))
	}
	for i, plan := range c.DayPlans {
		if plan.Day != i+1 {
			return fmt.Errorf("day plan %d has day number %d, expected %d", i, plan.Day, i+1)
		}
		switch plan.Action {
		case ActionCall:
			if len(plan.Slots) == 0 {
				return fmt.Errorf("day %d: call day needs at least one time slot", plan.Day)
			}
			for _, slot := range plan.Slots {
				if slot.StartMinutes() >= slot.EndMinutes() {
					return fmt.Errorf("day %d: slot %s must start before it ends", plan.Day, slot)
				}
			}
		case ActionWhatsApp:
			if plan.MessageTemplate == "" {
				return fmt.Errorf("day %d: whatsapp day needs a message template", plan.Day)
			}
		case ActionOff:
			// nothing to configure
		default:
			return fmt.Errorf("day %d: unknown action %q", plan.Day, plan.Action)
		}
	}
	return nil
}
