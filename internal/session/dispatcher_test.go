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

func TestNewStartsWithWelcome(t *testing.T) {
	service := newFakeService()
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)

	transcript := o.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, KindWelcome, transcript[0].Kind)
	assert.Equal(t, SenderBot, transcript[0].Sender)

	state := o.State()
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, 50, state.TrustScore)
	assert.Equal(t, 0, state.SearchCount)
	assert.Equal(t, DefaultSearchQuota, state.SearchQuota)
	assert.Equal(t, TabChat, state.ActiveTab)
	assert.Equal(t, []string{state.ID}, service.sessionIDs)
	assert.Zero(t, service.total())
}

func TestSendForwardsHeuristicHint(t *testing.T) {
	service := newFakeService()
	service.chatReply = api.ChatReply{
		Response: "ঢাকা বাংলাদেশের রাজধানী",
		Type:     "web_search",
		Sources:  []api.SearchResult{{URL: "https://bn.wikipedia.org/wiki/ঢাকা", Title: "ঢাকা"}},
	}
	service.searchStats = api.SearchStats{SearchCount: 1, Remaining: 49}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)

	msg, err := o.Send(context.Background(), "ঢাকা কোথায়")
	require.NoError(t, err)

	require.Len(t, service.chatRequests, 1)
	assert.True(t, service.chatRequests[0].WebSearch)
	assert.Equal(t, KindWebSearch, msg.Kind)
	require.Len(t, msg.Sources, 1)
	assert.Equal(t, "ঢাকা", msg.Sources[0].Title)

	transcript := o.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, SenderUser, transcript[1].Sender)
	assert.Equal(t, "ঢাকা কোথায়", transcript[1].Text)
	assert.Equal(t, msg, transcript[2])

	assert.Equal(t, 1, service.count("search_stats"))
	assert.Equal(t, 1, o.State().SearchCount)
	assert.Equal(t, 49, o.State().SearchRemaining)
	assert.Zero(t, gateway.loading)
}

func TestSendWithoutInterrogativeSendsNoHint(t *testing.T) {
	service := newFakeService()
	service.chatReply = api.ChatReply{Response: "হ্যালো", Type: "base_knowledge"}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	_, err := o.Send(context.Background(), "হ্যালো")
	require.NoError(t, err)
	require.Len(t, service.chatRequests, 1)
	assert.False(t, service.chatRequests[0].WebSearch)
}

func TestSendRecordsUserMessageKind(t *testing.T) {
	service := newFakeService()
	service.chatReply = api.ChatReply{Response: "ok", Type: "base_knowledge"}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	_, err := o.Send(context.Background(), "হ্যালো")
	require.NoError(t, err)
	transcript := o.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, SenderUser, transcript[1].Sender)
	assert.Equal(t, KindUser, transcript[1].Kind)
	assert.Equal(t, "You", transcript[1].Kind.Label())
}

func TestSendMapsUnknownKind(t *testing.T) {
	service := newFakeService()
	service.chatReply = api.ChatReply{Response: "?", Type: "telepathy"}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	msg, err := o.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, msg.Kind)
}

func TestSendMirrorsReportedTrustScore(t *testing.T) {
	service := newFakeService()
	score := 140
	service.chatReply = api.ChatReply{Response: "ok", Type: "learned", TrustScore: &score}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	_, err := o.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, 100, o.State().TrustScore)
}

func TestSendNetworkFailureAppendsErrorWithoutRefresh(t *testing.T) {
	service := newFakeService()
	service.chatErr = &api.NetworkError{Op: "chat", Err: errors.New("connection refused")}
	o := newTestOrchestrator(t, service, &recordingGateway{})
	before := o.State()

	msg, err := o.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, chatNetworkFailure, msg.Text)
	assert.Equal(t, 1, service.count("chat"), "never retried")
	assert.Zero(t, service.count("search_stats"))
	assert.Equal(t, before, o.State())
}

func TestSendServiceErrorIsShownVerbatim(t *testing.T) {
	service := newFakeService()
	service.chatErr = &api.ServiceError{Op: "chat", Status: http.StatusBadRequest, Message: "খালি মেসেজ"}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	msg, err := o.Send(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsNetwork(err))
	assert.Equal(t, "Error: খালি মেসেজ", msg.Text)
}

func TestSendRejectsBlankInput(t *testing.T) {
	service := newFakeService()
	o := newTestOrchestrator(t, service, &recordingGateway{})

	_, err := o.Send(context.Background(), "   ")
	require.True(t, IsValidation(err))
	assert.Zero(t, service.total())
	assert.Len(t, o.Transcript(), 1)
}

func TestWebSearchUsesFirstResult(t *testing.T) {
	service := newFakeService()
	service.searchReply = api.SearchReply{Results: []api.SearchResult{
		{URL: "https://a.example", Title: "A", Content: "first"},
		{URL: "https://b.example", Content: "second"},
	}}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	msg, err := o.WebSearch(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, KindWebSearch, msg.Kind)
	assert.Equal(t, "first", msg.Text)
	assert.Len(t, msg.Sources, 2)
	assert.Equal(t, 1, service.count("search_stats"))

	transcript := o.Transcript()
	assert.Equal(t, "[web search] golang", transcript[1].Text)
}

func TestWebSearchWithoutResultsIsNormal(t *testing.T) {
	service := newFakeService()
	service.searchReply = api.SearchReply{Results: []api.SearchResult{}}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	msg, err := o.WebSearch(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, KindWebSearch, msg.Kind)
	assert.Empty(t, msg.Text)
	assert.Empty(t, msg.Sources)
	assert.Equal(t, 1, service.count("search_stats"))
}

func TestWebSearchQuotaErrorSkipsRefresh(t *testing.T) {
	service := newFakeService()
	service.searchErr = &api.ServiceError{Op: "web_search", Status: http.StatusTooManyRequests, Message: "limit reached"}
	o := newTestOrchestrator(t, service, &recordingGateway{})

	msg, err := o.WebSearch(context.Background(), "golang")
	require.Error(t, err)
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "Search error: limit reached", msg.Text)
	assert.Zero(t, service.count("search_stats"))
}

func TestDirectSearchEmptyResultIsEmptySequence(t *testing.T) {
	service := newFakeService()
	service.searchReply = api.SearchReply{Results: []api.SearchResult{}}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)

	results, err := o.DirectSearch(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Len(t, o.Transcript(), 1, "direct search never touches the transcript")
	require.Len(t, gateway.results, 1)
	assert.Equal(t, 1, service.count("search_stats"))
}

func TestDirectSearchFailureDoesNotRefresh(t *testing.T) {
	service := newFakeService()
	service.searchErr = &api.NetworkError{Op: "web_search", Err: errors.New("timeout")}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)

	_, err := o.DirectSearch(context.Background(), "golang")
	require.Error(t, err)
	assert.Empty(t, gateway.results)
	assert.Zero(t, service.count("search_stats"))
}

func TestAutoLearnClipsAnswer(t *testing.T) {
	service := newFakeService()
	service.autoLearnReply = api.ActionReply{Success: true, Message: "saved"}
	gateway := &recordingGateway{}
	o := newTestOrchestrator(t, service, gateway)

	long := make([]rune, 0, 700)
	for i := 0; i < 700; i++ {
		long = append(long, 'ক')
	}
	message, err := o.AutoLearn(context.Background(), "q", string(long), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "saved", message)
	require.Len(t, service.autoLearns, 1)
	assert.Len(t, []rune(service.autoLearns[0].Answer), maxAutoLearnAnswer)
	assert.Equal(t, "https://a.example", service.autoLearns[0].Source)
	assert.Equal(t, "saved", gateway.lastNotice())
}

func TestRefreshFailureKeepsState(t *testing.T) {
	service := newFakeService()
	service.chatReply = api.ChatReply{Response: "ok", Type: "learned"}
	service.searchStatsErr = &api.NetworkError{Op: "search_stats", Err: errors.New("down")}
	o := newTestOrchestrator(t, service, &recordingGateway{})
	before := o.State()

	_, err := o.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, before, o.State())
}
