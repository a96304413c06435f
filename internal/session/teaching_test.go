package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/bnchat/internal/api"
)

func TestTeachRejectsEmptyFieldsWithoutCalling(t *testing.T) {
	cases := []struct {
		name     string
		question string
		answer   string
		field    string
	}{
		{name: "empty question", question: "  ", answer: "৪", field: "question"},
		{name: "empty answer", question: "২+২=?", answer: "\t", field: "answer"},
		{name: "both empty", question: "", answer: "", field: "question"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := newFakeService()
			o := newTestOrchestrator(t, service, &recordingGateway{})

			outcome, err := o.Teach(context.Background(), tc.question, tc.answer)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
			assert.Equal(t, PhaseIdle, outcome.Phase)
			assert.Zero(t, service.total())
		})
	}
}

func TestTeachAccepted(t *testing.T) {
	service := newFakeService()
	service.learnReplies = []api.LearnReply{{Success: true, Message: "শিখে নিলাম"}}
	service.searchStats = api.SearchStats{SearchCount: 3, Remaining: 47}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)
	o.ToggleLearningMode()
	require.True(t, o.State().LearningMode)

	outcome, err := o.Teach(context.Background(), "রাজধানী?", "ঢাকা")
	require.NoError(t, err)
	assert.Equal(t, PhaseAccepted, outcome.Phase)
	assert.True(t, outcome.ClearsInput())
	assert.Equal(t, "শিখে নিলাম", gateway.lastNotice())

	state := o.State()
	assert.False(t, state.LearningMode)
	assert.Equal(t, 3, state.SearchCount)

	require.Len(t, service.learnRequests, 1)
	assert.False(t, service.learnRequests[0].Override)
	assert.Empty(t, gateway.prompts)

	transcript := o.Transcript()
	last := transcript[len(transcript)-1]
	assert.Equal(t, KindLearned, last.Kind)
	assert.Contains(t, last.Text, "রাজধানী?")
	assert.Contains(t, last.Text, "ঢাকা")
	assert.Equal(t, PhaseIdle, o.TeachPhase())
}

func TestTeachConflictConfirmedOverrides(t *testing.T) {
	service := newFakeService()
	service.learnReplies = []api.LearnReply{
		{Success: false, Message: "already known", ExistingAnswer: "৫"},
		{Success: true, Message: "updated"},
	}
	gateway := &recordingGateway{}
	var phaseDuringPrompt TeachPhase
	var o *Orchestrator
	gateway.confirmWith = func(Prompt) bool {
		phaseDuringPrompt = o.TeachPhase()
		return true
	}
	o = newTestOrchestrator(t, service, gateway)
	o.ToggleLearningMode()
	before := len(o.Transcript())

	outcome, err := o.Teach(context.Background(), "২+২=?", "৪")
	require.NoError(t, err)
	assert.Equal(t, PhaseOverridden, outcome.Phase)
	assert.Equal(t, "৫", outcome.ExistingAnswer)
	assert.Equal(t, PhaseConflicted, phaseDuringPrompt)

	require.Len(t, gateway.prompts, 1)
	assert.Equal(t, PromptOverride, gateway.prompts[0].Kind)
	assert.Equal(t, "৫", gateway.prompts[0].Existing)
	assert.Equal(t, "৪", gateway.prompts[0].Proposed)

	require.Len(t, service.learnRequests, 2)
	assert.False(t, service.learnRequests[0].Override)
	assert.True(t, service.learnRequests[1].Override)
	assert.Equal(t, "updated", gateway.lastNotice())
	assert.False(t, o.State().LearningMode)

	transcript := o.Transcript()
	require.Len(t, transcript, before+1)
	learned := transcript[len(transcript)-1]
	assert.Equal(t, KindLearned, learned.Kind)
	assert.Contains(t, learned.Text, "২+২=?")
	assert.Contains(t, learned.Text, "৪")
}

func TestTeachConflictDeclinedIsNoOp(t *testing.T) {
	service := newFakeService()
	service.learnReplies = []api.LearnReply{{Success: false, Message: "exists", ExistingAnswer: "৫"}}
	gateway := &recordingGateway{confirmWith: func(Prompt) bool { return false }}
	o := newTestOrchestrator(t, service, gateway)
	o.ToggleLearningMode()
	before := o.State()
	transcriptBefore := o.Transcript()

	outcome, err := o.Teach(context.Background(), "২+২=?", "৪")
	require.NoError(t, err)
	assert.Equal(t, PhaseAbandoned, outcome.Phase)
	assert.False(t, outcome.ClearsInput())
	assert.Equal(t, 1, service.count("learn"))
	assert.Zero(t, service.count("search_stats"))
	assert.Equal(t, before, o.State())
	assert.Equal(t, transcriptBefore, o.Transcript())
	assert.Equal(t, PhaseIdle, o.TeachPhase())
}

func TestTeachRejectionReportedVerbatim(t *testing.T) {
	service := newFakeService()
	service.learnReplies = []api.LearnReply{{Success: false, Message: "অনুপযুক্ত কন্টেন্ট"}}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)
	before := o.State()

	outcome, err := o.Teach(context.Background(), "q", "a")
	var rejection *DomainRejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "অনুপযুক্ত কন্টেন্ট", rejection.Message)
	assert.Equal(t, PhaseRejected, outcome.Phase)
	assert.Equal(t, "অনুপযুক্ত কন্টেন্ট", gateway.lastNotice())
	assert.Equal(t, before, o.State())
	assert.Empty(t, gateway.prompts)
}

func TestTeachNetworkFailureLeavesStateAlone(t *testing.T) {
	service := newFakeService()
	service.learnErr = &api.NetworkError{Op: "learn", Err: errors.New("reset by peer")}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)
	o.ToggleLearningMode()
	before := o.State()

	_, err := o.Teach(context.Background(), "q", "a")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, teachNetworkFailure, gateway.lastNotice())
	assert.Equal(t, before, o.State())
	assert.Equal(t, 1, service.count("learn"))
}

func TestTeachServiceErrorShowsServiceMessage(t *testing.T) {
	service := newFakeService()
	service.learnErr = &api.ServiceError{Op: "learn", Status: http.StatusBadRequest, Message: "প্রশ্ন খুব ছোট"}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)
	o.ToggleLearningMode()
	before := o.State()

	_, err := o.Teach(context.Background(), "q", "a")
	require.Error(t, err)
	assert.Equal(t, "প্রশ্ন খুব ছোট", gateway.lastNotice())
	assert.Equal(t, before, o.State())
}

func TestSecondMutationWhileConfirmationPendingIsRefused(t *testing.T) {
	service := newFakeService()
	service.learnReplies = []api.LearnReply{{Success: false, ExistingAnswer: "old"}}
	gateway := &recordingGateway{}
	var o *Orchestrator
	var concurrentTeach, concurrentUndo error
	gateway.confirmWith = func(Prompt) bool {
		_, concurrentTeach = o.Teach(context.Background(), "other", "answer")
		_, concurrentUndo = o.Undo(context.Background())
		return false
	}
	o = newTestOrchestrator(t, service, gateway)

	outcome, err := o.Teach(context.Background(), "q", "new")
	require.NoError(t, err)
	assert.Equal(t, PhaseAbandoned, outcome.Phase)
	assert.ErrorIs(t, concurrentTeach, ErrOperationInFlight)
	assert.ErrorIs(t, concurrentUndo, ErrOperationInFlight)
	assert.Equal(t, 1, service.count("learn"))
	assert.Zero(t, service.count("undo"))
}
