package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJourney() []DayPlan {
	plans := []DayPlan{
		{Day: 1, Action: ActionCall, Slots: []TimeSlot{{StartHour: 12, EndHour: 13, TargetCount: 4}}},
		{Day: 2, Action: ActionWhatsApp, MessageTemplate: "Hi {first_name}", SendHour: 14},
	}
	for day := 3; day <= JourneyDays; day++ {
		plans = append(plans, DayPlan{Day: day, Action: ActionOff})
	}
	return plans
}

func TestValidateJourney(t *testing.T) {
	c := Campaign{DayPlans: validJourney()}
	assert.NoError(t, c.ValidateJourney())
}

func TestValidateJourneyRejectsWrongLength(t *testing.T) {
	c := Campaign{DayPlans: validJourney()[:6]}
	err := c.ValidateJourney()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 7")
}

func TestValidateJourneyRejectsOutOfOrderDays(t *testing.T) {
	plans := validJourney()
	plans[2].Day, plans[3].Day = 4, 3

	c := Campaign{DayPlans: plans}
	assert.Error(t, c.ValidateJourney())
}

func TestValidateJourneyRejectsCallDayWithoutSlots(t *testing.T) {
	plans := validJourney()
	plans[0].Slots = nil

	c := Campaign{DayPlans: plans}
	err := c.ValidateJourney()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time slot")
}

func TestValidateJourneyRejectsInvertedSlot(t *testing.T) {
	plans := validJourney()
	plans[0].Slots = []TimeSlot{{StartHour: 13, EndHour: 12, TargetCount: 4}}

	c := Campaign{DayPlans: plans}
	assert.Error(t, c.ValidateJourney())
}

func TestValidateJourneyRejectsWhatsAppWithoutTemplate(t *testing.T) {
	plans := validJourney()
	plans[1].MessageTemplate = ""

	c := Campaign{DayPlans: plans}
	err := c.ValidateJourney()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message template")
}

func TestValidateJourneyRejectsUnknownAction(t *testing.T) {
	plans := validJourney()
	plans[4].Action = "email"

	c := Campaign{DayPlans: plans}
	assert.Error(t, c.ValidateJourney())
}

func TestPlanForDay(t *testing.T) {
	c := Campaign{DayPlans: validJourney()}

	plan := c.PlanForDay(2)
	require.NotNil(t, plan)
	assert.Equal(t, ActionWhatsApp, plan.Action)

	assert.Nil(t, c.PlanForDay(8))
}

func TestTimeSlotMinutes(t *testing.T) {
	s := TimeSlot{StartHour: 9, StartMinute: 30, EndHour: 10, EndMinute: 45}

	assert.Equal(t, 9*60+30, s.StartMinutes())
	assert.Equal(t, 10*60+45, s.EndMinutes())
	assert.Equal(t, "09:30-10:45", s.String())
}
