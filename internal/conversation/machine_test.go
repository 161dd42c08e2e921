package conversation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
)

func newMachine() *conversation.Machine {
	return conversation.NewMachine(conversation.DefaultConfig(), nil)
}

func templateIDs(res conversation.StepResult) []string {
	ids := make([]string, 0, len(res.Intents))
	for _, in := range res.Intents {
		ids = append(ids, in.TemplateID)
	}
	return ids
}

func TestStepInitToSummary(t *testing.T) {
	m := newMachine()
	sess := &session.Session{State: session.StateInit, RateWindowStart: time.Now()}

	res := m.Step(sess, "anything at all", time.Now())

	require.Equal(t, session.StateSummarySent, res.NextState)
	require.Equal(t, []string{compose.TemplateExecutiveSummary}, templateIDs(res))
	require.False(t, res.RateLimited)
}

func TestStepSummaryToChoice(t *testing.T) {
	m := newMachine()
	sess := &session.Session{State: session.StateSummarySent, RateWindowStart: time.Now()}

	res := m.Step(sess, "ok", time.Now())

	require.Equal(t, session.StateAwaitingChoice, res.NextState)
	require.Equal(t, []string{compose.TemplateTopicMenu}, templateIDs(res))
}

func TestStepChoiceSelectsTopic(t *testing.T) {
	tests := []struct {
		input string
		topic session.Topic
		want  []string
	}{
		{"1", session.TopicSkills, []string{compose.TemplateDetailSkills}},
		{"skills", session.TopicSkills, []string{compose.TemplateDetailSkills}},
		{"2", session.TopicExperience, []string{compose.TemplateDetailExperience}},
		{"Experience", session.TopicExperience, []string{compose.TemplateDetailExperience}},
		{"3", session.TopicFormatting, []string{compose.TemplateDetailFormatting}},
		{"ats", session.TopicFormatting, []string{compose.TemplateDetailFormatting}},
		{"4", session.TopicAll, []string{
			compose.TemplateDetailSkills,
			compose.TemplateDetailExperience,
			compose.TemplateDetailFormatting,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newMachine()
			sess := &session.Session{State: session.StateAwaitingChoice, RateWindowStart: time.Now()}

			res := m.Step(sess, tt.input, time.Now())

			require.Equal(t, session.StateAwaitingFollowup, res.NextState)
			require.Equal(t, tt.topic, res.Topic)
			require.Equal(t, tt.want, templateIDs(res))
		})
	}
}

func TestStepUnrecognizedChoiceClarifiesOnce(t *testing.T) {
	m := newMachine()
	sess := &session.Session{State: session.StateAwaitingChoice, RateWindowStart: time.Now()}

	res := m.Step(sess, "5", time.Now())

	require.Equal(t, session.StateAwaitingChoice, res.NextState)
	require.Equal(t, []string{compose.TemplateClarification}, templateIDs(res))

	// Repeated bad input still yields exactly one clarification per turn.
	res = m.Step(sess, "banana", time.Now())
	require.Equal(t, session.StateAwaitingChoice, res.NextState)
	require.Len(t, res.Intents, 1)
}

func TestStepFollowupDone(t *testing.T) {
	for _, input := range []string{"done", "no", "stop", "thanks", "Thank you"} {
		t.Run(input, func(t *testing.T) {
			m := newMachine()
			sess := &session.Session{
				State:           session.StateAwaitingFollowup,
				RateWindowStart: time.Now(),
				LastActivity:    time.Now(),
			}

			res := m.Step(sess, input, time.Now())

			require.Equal(t, session.StateCompleted, res.NextState)
			require.Equal(t, []string{compose.TemplateClosing}, templateIDs(res))
		})
	}
}

func TestStepFollowupAnotherTopic(t *testing.T) {
	m := newMachine()
	sess := &session.Session{
		State:           session.StateAwaitingFollowup,
		LastChoice:      session.TopicSkills,
		RateWindowStart: time.Now(),
		LastActivity:    time.Now(),
	}

	res := m.Step(sess, "formatting", time.Now())

	require.Equal(t, session.StateAwaitingFollowup, res.NextState)
	require.Equal(t, session.TopicFormatting, res.Topic)
	require.Equal(t, []string{compose.TemplateDetailFormatting}, templateIDs(res))
}

func TestStepFollowupTimeout(t *testing.T) {
	m := newMachine()
	now := time.Now()
	sess := &session.Session{
		State:           session.StateAwaitingFollowup,
		RateWindowStart: now,
		LastActivity:    now.Add(-3 * time.Hour),
	}

	res := m.Step(sess, "skills", now)

	require.Equal(t, session.StateCompleted, res.NextState)
	require.Equal(t, []string{compose.TemplateClosing}, templateIDs(res))
}

func TestStepCompletedRestarts(t *testing.T) {
	m := newMachine()
	sess := &session.Session{State: session.StateCompleted, RateWindowStart: time.Now()}

	res := m.Step(sess, "hello again", time.Now())

	require.Equal(t, session.StateSummarySent, res.NextState)
	require.Equal(t, []string{compose.TemplateExecutiveSummary}, templateIDs(res))
}

func TestStepErrorRestarts(t *testing.T) {
	m := newMachine()
	sess := &session.Session{State: session.StateError, RateWindowStart: time.Now()}

	res := m.Step(sess, "retry", time.Now())

	require.Equal(t, session.StateSummarySent, res.NextState)
}

func TestStepRateBudgetDefers(t *testing.T) {
	m := conversation.NewMachine(conversation.Config{
		RateCap:          3,
		RateWindow:       24 * time.Hour,
		InactivityWindow: 2 * time.Hour,
	}, nil)

	sess := &session.Session{
		State:           session.StateAwaitingChoice,
		RateWindowStart: time.Now(),
		RateWindowCount: 3,
	}

	res := m.Step(sess, "skills", time.Now())

	require.True(t, res.RateLimited)
	require.Equal(t, session.StateAwaitingChoice, res.NextState)
	require.Equal(t, []string{compose.TemplateDeferred}, templateIDs(res))
	require.Empty(t, res.Topic)
}

func TestStepRateWindowExpiryResets(t *testing.T) {
	m := conversation.NewMachine(conversation.Config{
		RateCap:          3,
		RateWindow:       24 * time.Hour,
		InactivityWindow: 2 * time.Hour,
	}, nil)

	now := time.Now()
	sess := &session.Session{
		State:           session.StateAwaitingChoice,
		RateWindowStart: now.Add(-25 * time.Hour),
		RateWindowCount: 3,
	}

	res := m.Step(sess, "skills", now)

	require.False(t, res.RateLimited)
	require.True(t, res.WindowReset)
	require.Equal(t, session.StateAwaitingFollowup, res.NextState)
}

func TestStepCitationLabels(t *testing.T) {
	labels := map[string]string{"guide_0": "Use the Keywords the ATS Seeks"}
	m := conversation.NewMachine(conversation.DefaultConfig(), func(id string) string {
		if l, ok := labels[id]; ok {
			return l
		}
		return id
	})

	sess := &session.Session{
		State:           session.StateAwaitingChoice,
		RateWindowStart: time.Now(),
		Score: &scoring.Result{
			Band:      scoring.BandMedium,
			Citations: []string{"guide_0"},
		},
	}

	res := m.Step(sess, "skills", time.Now())

	require.Len(t, res.Intents, 1)
	require.Equal(t, "Use the Keywords the ATS Seeks", res.Intents[0].Variables["citations"])
}
