package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSequence() *AutomationSequence {
	return &AutomationSequence{
		TenantID: "tenant1",
		Name:     "Welcome",
		Trigger:  TriggerNewLeadAdded,
		Steps: []AutomationStep{
			{Order: 0, Action: StepActionSendEmail, Subject: "Hi", Body: "<p>Welcome</p>"},
			{Order: 1, Action: StepActionWait, WaitDays: 2},
			{Order: 2, Action: StepActionSendSMS, Body: "Still there?"},
		},
	}
}

func TestAutomationStep_Validate(t *testing.T) {
	tests := []struct {
		name    string
		step    AutomationStep
		wantErr string
	}{
		{"email ok", AutomationStep{Action: StepActionSendEmail, Subject: "s", Body: "b"}, ""},
		{"email without subject", AutomationStep{Action: StepActionSendEmail, Body: "b"}, "subject is required"},
		{"email without body", AutomationStep{Action: StepActionSendEmail, Subject: "s"}, "body is required"},
		{"email with wait days", AutomationStep{Action: StepActionSendEmail, Subject: "s", Body: "b", WaitDays: 1}, "wait_days is only allowed"},
		{"sms ok", AutomationStep{Action: StepActionSendSMS, Body: "b"}, ""},
		{"sms with subject", AutomationStep{Action: StepActionSendSMS, Subject: "s", Body: "b"}, "subject is only allowed"},
		{"sms without body", AutomationStep{Action: StepActionSendSMS}, "body is required"},
		{"wait ok", AutomationStep{Action: StepActionWait, WaitDays: 1}, ""},
		{"wait zero days", AutomationStep{Action: StepActionWait}, "wait_days must be at least 1"},
		{"wait with subject", AutomationStep{Action: StepActionWait, WaitDays: 1, Subject: "s"}, "subject is only allowed"},
		{"unknown action", AutomationStep{Action: "call"}, "invalid action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAutomationSequence_Validate(t *testing.T) {
	t.Run("valid sequence", func(t *testing.T) {
		assert.NoError(t, validSequence().Validate())
	})

	t.Run("zero steps", func(t *testing.T) {
		seq := validSequence()
		seq.Steps = nil
		err := seq.Validate()
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "at least one step")
	})

	t.Run("consecutive waits", func(t *testing.T) {
		seq := validSequence()
		seq.Steps = []AutomationStep{
			{Order: 0, Action: StepActionWait, WaitDays: 2},
			{Order: 1, Action: StepActionWait, WaitDays: 3},
			{Order: 2, Action: StepActionSendEmail, Subject: "s", Body: "b"},
		}
		err := seq.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consecutive waits")
	})

	t.Run("waits separated by a send", func(t *testing.T) {
		seq := validSequence()
		seq.Steps = []AutomationStep{
			{Order: 0, Action: StepActionWait, WaitDays: 1},
			{Order: 1, Action: StepActionSendSMS, Body: "b"},
			{Order: 2, Action: StepActionWait, WaitDays: 1},
		}
		assert.NoError(t, seq.Validate())
	})

	t.Run("order gap", func(t *testing.T) {
		seq := validSequence()
		seq.Steps[2].Order = 5
		err := seq.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "order must be 2")
	})

	t.Run("missing name", func(t *testing.T) {
		seq := validSequence()
		seq.Name = "  "
		assert.Error(t, seq.Validate())
	})

	t.Run("unknown trigger", func(t *testing.T) {
		seq := validSequence()
		seq.Trigger = "form_submitted"
		assert.Error(t, seq.Validate())
	})
}

func TestAutomationSequence_StepLookup(t *testing.T) {
	seq := validSequence()
	for i := range seq.Steps {
		seq.Steps[i].ID = string(rune('a' + i))
	}

	assert.Equal(t, 1, seq.StepIndex("b"))
	assert.Equal(t, -1, seq.StepIndex("zz"))
	assert.Equal(t, StepActionSendSMS, seq.StepAt(2).Action)
	assert.Nil(t, seq.StepAt(3))
	assert.Nil(t, seq.StepAt(-1))
}

func TestStepAction_Channel(t *testing.T) {
	ch, ok := StepActionSendEmail.Channel()
	assert.True(t, ok)
	assert.Equal(t, ChannelEmail, ch)

	ch, ok = StepActionSendSMS.Channel()
	assert.True(t, ok)
	assert.Equal(t, ChannelSMS, ch)

	_, ok = StepActionWait.Channel()
	assert.False(t, ok)
}

func TestAutomationContactProgress_Complete(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &AutomationContactProgress{NextStepAt: now.Add(-time.Hour)}
	assert.True(t, p.IsActive())

	p.Complete(now, CompletionUnsubscribed)
	assert.False(t, p.IsActive())
	assert.Equal(t, now, *p.CompletedAt)
	assert.Equal(t, CompletionUnsubscribed, p.CompletionReason)
}

func TestAutomationStep_WaitDuration(t *testing.T) {
	step := AutomationStep{Action: StepActionWait, WaitDays: 3}
	assert.Equal(t, 72*time.Hour, step.WaitDuration())
}

func TestAutomationSequence_Start(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	seq := &AutomationSequence{Steps: []AutomationStep{
		{ID: "w", Action: StepActionWait, WaitDays: 2},
		{ID: "e", Action: StepActionSendEmail},
	}}
	p := &AutomationContactProgress{}
	seq.Start(p, now)
	require.NotNil(t, p.CurrentStepID)
	assert.Equal(t, "w", *p.CurrentStepID)
	assert.Equal(t, now.Add(48*time.Hour), p.NextStepAt)

	seq.Steps = seq.Steps[1:]
	p = &AutomationContactProgress{}
	seq.Start(p, now)
	assert.Nil(t, p.CurrentStepID)
	assert.Equal(t, now, p.NextStepAt)
}
