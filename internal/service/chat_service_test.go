package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLM struct {
	selection    *ToolSelection
	selectionErr error
	answer       string
	answerErr    error
	summary      string
	summaryErr   error

	lastPrompt       string
	formatCalls      int
	summarizeCalls   int
	summarizedTexts  []string
	summarizedFocus  string
	formattedPayload map[string]any
}

func (f *fakeLLM) SelectTool(_ context.Context, query string) (*ToolSelection, error) {
	f.lastPrompt = query
	if f.selectionErr != nil {
		return nil, f.selectionErr
	}
	return f.selection, nil
}

func (f *fakeLLM) FormatAnswer(_ context.Context, _, _ string, _, result map[string]any) (string, error) {
	f.formatCalls++
	f.formattedPayload = result
	return f.answer, f.answerErr
}

func (f *fakeLLM) Summarize(_ context.Context, question string, texts []string) (string, error) {
	f.summarizeCalls++
	f.summarizedFocus = question
	f.summarizedTexts = texts
	return f.summary, f.summaryErr
}

type fakeDispatcher struct {
	payload map[string]any
	chart   *dto.ChartData
	err     error

	calls    int
	lastName string
	lastArgs map[string]any
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, args map[string]any, _ models.Scope) (map[string]any, *dto.ChartData, error) {
	f.calls++
	f.lastName = name
	f.lastArgs = args
	return f.payload, f.chart, f.err
}

type fakeConversations struct {
	records []*models.ToolCallRecord
}

func (f *fakeConversations) Append(_ context.Context, record *models.ToolCallRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeConversations) RecentByUser(_ context.Context, _ uuid.UUID, limit int) ([]models.ToolCallRecord, error) {
	out := make([]models.ToolCallRecord, 0, len(f.records))
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.records[i])
	}
	return out, nil
}

type staticScopes struct {
	scope models.Scope
}

func (s staticScopes) Resolve(_ context.Context, _ uuid.UUID, _ string) (models.Scope, error) {
	return s.scope, nil
}

func testGeminiConfig() config.GeminiConfig {
	return config.GeminiConfig{
		SelectTimeout:    time.Second,
		FormatTimeout:    time.Second,
		SummarizeTimeout: time.Second,
	}
}

func newTestChat(llm *fakeLLM, dispatcher *fakeDispatcher, conversations *fakeConversations) *ChatService {
	metrics := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{})
	return NewChatService(
		llm, dispatcher, staticScopes{scope: models.UnrestrictedScope()},
		metrics, conversations, testGeminiConfig(), zap.NewNop())
}

func TestAskToolFlow(t *testing.T) {
	llm := &fakeLLM{
		selection: &ToolSelection{
			Name: ToolGetNPS,
			Args: map[string]any{"category": "Electronics"},
		},
		answer: "Electronics has an NPS of 20.",
	}
	chart := &dto.ChartData{Type: dto.ChartBar}
	dispatcher := &fakeDispatcher{
		payload: map[string]any{"nps_score": 20},
		chart:   chart,
	}
	conversations := &fakeConversations{}
	svc := newTestChat(llm, dispatcher, conversations)

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "how is electronics doing?", nil)
	require.NoError(t, err)

	assert.Equal(t, "Electronics has an NPS of 20.", resp.Answer)
	assert.Equal(t, ToolGetNPS, resp.ToolUsed)
	assert.Same(t, chart, resp.ChartData)
	assert.Equal(t, ToolGetNPS, dispatcher.lastName)
	assert.Equal(t, map[string]any{"nps_score": 20}, llm.formattedPayload)

	require.Len(t, conversations.records, 1)
	record := conversations.records[0]
	assert.Equal(t, ToolGetNPS, record.ToolUsed)
	assert.True(t, record.HasChart)
	assert.JSONEq(t, `{"category":"Electronics"}`, record.ToolArgs)
}

func TestAskContextProductHint(t *testing.T) {
	llm := &fakeLLM{selection: &ToolSelection{FreeText: "hello"}}
	svc := newTestChat(llm, &fakeDispatcher{}, &fakeConversations{})

	productID := int64(42)
	_, err := svc.Ask(context.Background(), uuid.New(), models.RoleAnalyst, "summarize this", &productID)
	require.NoError(t, err)

	assert.Equal(t, "summarize this (Context: product_id=42)", llm.lastPrompt)
}

func TestAskFreeTextFallback(t *testing.T) {
	llm := &fakeLLM{selection: &ToolSelection{FreeText: "I can only answer questions about reviews."}}
	dispatcher := &fakeDispatcher{}
	conversations := &fakeConversations{}
	svc := newTestChat(llm, dispatcher, conversations)

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "what is the weather?", nil)
	require.NoError(t, err)

	assert.Equal(t, "none", resp.ToolUsed)
	assert.Equal(t, "I can only answer questions about reviews.", resp.Answer)
	assert.Zero(t, dispatcher.calls)

	require.Len(t, conversations.records, 1)
	assert.Equal(t, "none", conversations.records[0].ToolUsed)
	assert.False(t, conversations.records[0].HasChart)
}

func TestAskSelectionUnavailable(t *testing.T) {
	llm := &fakeLLM{selectionErr: fmt.Errorf("%w: quota", ErrLLMUnavailable)}
	conversations := &fakeConversations{}
	svc := newTestChat(llm, &fakeDispatcher{}, conversations)

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "anything", nil)
	require.NoError(t, err)

	assert.Equal(t, unavailableAnswer, resp.Answer)
	assert.Equal(t, "none", resp.ToolUsed)
	require.Len(t, conversations.records, 1)
}

func TestAskFormattingUnavailableKeepsComputedState(t *testing.T) {
	llm := &fakeLLM{
		selection: &ToolSelection{Name: ToolGetNPS, Args: map[string]any{"category": "Books"}},
		answerErr: fmt.Errorf("%w: deadline", ErrLLMUnavailable),
	}
	chart := &dto.ChartData{Type: dto.ChartBar}
	dispatcher := &fakeDispatcher{payload: map[string]any{"nps_score": 5}, chart: chart}
	conversations := &fakeConversations{}
	svc := newTestChat(llm, dispatcher, conversations)

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "books nps", nil)
	require.NoError(t, err)

	// Degraded answer still carries the tool outcome.
	assert.Equal(t, unavailableAnswer, resp.Answer)
	assert.Equal(t, ToolGetNPS, resp.ToolUsed)
	assert.Same(t, chart, resp.ChartData)
	require.Len(t, conversations.records, 1)
	assert.True(t, conversations.records[0].HasChart)
}

func TestAskInternalLLMErrorPropagates(t *testing.T) {
	llm := &fakeLLM{selectionErr: errors.New("boom")}
	conversations := &fakeConversations{}
	svc := newTestChat(llm, &fakeDispatcher{}, conversations)

	_, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "anything", nil)
	require.Error(t, err)
	assert.Empty(t, conversations.records)
}

func TestAskSummarizePath(t *testing.T) {
	llm := &fakeLLM{
		selection: &ToolSelection{Name: ToolSummarizeReviews, Args: map[string]any{"product_id": float64(7)}},
		summary:   "### Summary\ngood product",
	}
	// Dispatch payloads arrive JSON-shaped, so the texts come as []any.
	dispatcher := &fakeDispatcher{
		payload: map[string]any{
			"review_texts": []any{"great", "bad"},
			"question":     "battery",
			"review_count": float64(2),
		},
	}
	svc := newTestChat(llm, dispatcher, &fakeConversations{})

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAdmin, "summarize product 7", nil)
	require.NoError(t, err)

	assert.Equal(t, llm.summary, resp.Answer)
	assert.Nil(t, resp.ChartData)
	assert.Equal(t, 1, llm.summarizeCalls)
	assert.Zero(t, llm.formatCalls)
	assert.Equal(t, []string{"great", "bad"}, llm.summarizedTexts)
	assert.Equal(t, "battery", llm.summarizedFocus)
}

func TestAskPayloadErrorSkipsLLM(t *testing.T) {
	llm := &fakeLLM{
		selection: &ToolSelection{Name: ToolGetNPS, Args: map[string]any{"category": "Toys"}},
	}
	dispatcher := &fakeDispatcher{payload: map[string]any{"error": "access denied: category not in your scope"}}
	svc := newTestChat(llm, dispatcher, &fakeConversations{})

	resp, err := svc.Ask(context.Background(), uuid.New(), models.RoleAnalyst, "toys nps", nil)
	require.NoError(t, err)

	assert.Equal(t, "access denied: category not in your scope", resp.Answer)
	assert.Zero(t, llm.formatCalls)
	assert.Zero(t, llm.summarizeCalls)
}

func TestHistory(t *testing.T) {
	conversations := &fakeConversations{}
	svc := newTestChat(&fakeLLM{selection: &ToolSelection{FreeText: "hi"}}, &fakeDispatcher{}, conversations)

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := svc.Ask(context.Background(), userID, models.RoleAdmin, fmt.Sprintf("q%d", i), nil)
		require.NoError(t, err)
	}

	entries, err := svc.History(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "q2", entries[0].Query)
	assert.Equal(t, "q0", entries[2].Query)
}

func TestInsightsRequiresTarget(t *testing.T) {
	svc := newTestChat(&fakeLLM{}, &fakeDispatcher{}, &fakeConversations{})

	_, err := svc.Insights(context.Background(), uuid.New(), models.RoleAdmin, dto.InsightsRequest{})
	assert.ErrorIs(t, err, ErrInsightTargetMissing)
}

func TestInsightsByProduct(t *testing.T) {
	llm := &fakeLLM{summary: "### Summary\nsolid"}
	metrics := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{
		reviews: []models.Review{{ReviewText: "nice"}, {ReviewText: "works"}},
	})
	svc := NewChatService(
		llm, &fakeDispatcher{}, staticScopes{scope: models.UnrestrictedScope()},
		metrics, &fakeConversations{}, testGeminiConfig(), zap.NewNop())

	productID := int64(3)
	resp, err := svc.Insights(context.Background(), uuid.New(), models.RoleAdmin,
		dto.InsightsRequest{ProductID: &productID})
	require.NoError(t, err)

	assert.Equal(t, llm.summary, resp.Insights)
	assert.Equal(t, 2, resp.ReviewCount)
}

func TestInsightsNoVisibleReviews(t *testing.T) {
	llm := &fakeLLM{}
	metrics := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{})
	svc := NewChatService(
		llm, &fakeDispatcher{}, staticScopes{scope: models.ScopeOf()},
		metrics, &fakeConversations{}, testGeminiConfig(), zap.NewNop())

	productID := int64(3)
	resp, err := svc.Insights(context.Background(), uuid.New(), models.RoleAnalyst,
		dto.InsightsRequest{ProductID: &productID})
	require.NoError(t, err)

	assert.Equal(t, "no reviews found or access denied", resp.Insights)
	assert.Zero(t, resp.ReviewCount)
	assert.Zero(t, llm.summarizeCalls)
}
