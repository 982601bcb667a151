package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	historyLimit = 20

	noToolUsed = "none"

	unavailableAnswer = "The analytics assistant is temporarily unavailable. " +
		"The computed figures for your question are attached; please try again in a moment."
)

// LanguageModel is the slice of the Gemini wrapper the orchestrator needs.
type LanguageModel interface {
	SelectTool(ctx context.Context, query string) (*ToolSelection, error)
	FormatAnswer(ctx context.Context, query, toolName string, args, result map[string]any) (string, error)
	Summarize(ctx context.Context, question string, reviewTexts []string) (string, error)
}

// ToolDispatcher executes a selected tool against a scope.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error)
}

// ScopeResolver resolves a caller into a category scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, role string) (models.Scope, error)
}

// ConversationStore is the append-only dispatch log.
type ConversationStore interface {
	Append(ctx context.Context, record *models.ToolCallRecord) error
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ToolCallRecord, error)
}

// ChatService drives a question through tool selection, dispatch and answer
// formatting. Every model call runs under its own deadline carved from the
// request context, so one slow call never leaks into another request.
type ChatService struct {
	llm           LanguageModel
	tools         ToolDispatcher
	scopes        ScopeResolver
	metrics       *MetricsService
	conversations ConversationStore
	cfg           config.GeminiConfig
	logger        *zap.Logger
}

func NewChatService(
	llm LanguageModel,
	tools ToolDispatcher,
	scopes ScopeResolver,
	metrics *MetricsService,
	conversations ConversationStore,
	cfg config.GeminiConfig,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		llm:           llm,
		tools:         tools,
		scopes:        scopes,
		metrics:       metrics,
		conversations: conversations,
		cfg:           cfg,
		logger:        logger,
	}
}

// Ask answers one natural-language question. LLM unavailability degrades to
// a well-formed response carrying whatever was computed before the failure;
// only internal faults (storage, unexpected provider errors) return an error.
func (s *ChatService) Ask(ctx context.Context, userID uuid.UUID, role, query string, contextProductID *int64) (*dto.ChatResponse, error) {
	scope, err := s.scopes.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	prompt := query
	if contextProductID != nil {
		prompt = fmt.Sprintf("%s (Context: product_id=%d)", query, *contextProductID)
	}

	selectCtx, cancel := context.WithTimeout(ctx, s.cfg.SelectTimeout)
	selection, err := s.llm.SelectTool(selectCtx, prompt)
	cancel()
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			return s.finish(ctx, userID, query, &dto.ChatResponse{
				Answer:   unavailableAnswer,
				ToolUsed: noToolUsed,
			})
		}
		return nil, err
	}

	if selection.Name == "" {
		return s.finish(ctx, userID, query, &dto.ChatResponse{
			Answer:   selection.FreeText,
			ToolUsed: noToolUsed,
		})
	}

	payload, chart, err := s.tools.Dispatch(ctx, selection.Name, selection.Args, scope)
	if err != nil {
		return nil, err
	}

	resp := &dto.ChatResponse{
		ToolUsed:  selection.Name,
		ToolArgs:  selection.Args,
		ChartData: chart,
	}

	answer, err := s.narrate(ctx, prompt, selection, payload)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			resp.Answer = unavailableAnswer
			return s.finish(ctx, userID, query, resp)
		}
		return nil, err
	}
	resp.Answer = answer

	return s.finish(ctx, userID, query, resp)
}

// narrate turns a dispatch payload into prose. Summaries go straight to the
// summarization call; everything else is replayed to the model as function
// response evidence. Payload-level errors are stated verbatim, no LLM call.
func (s *ChatService) narrate(ctx context.Context, prompt string, selection *ToolSelection, payload map[string]any) (string, error) {
	if msg, ok := payload["error"].(string); ok {
		return msg, nil
	}

	if selection.Name == ToolSummarizeReviews {
		texts := stringValues(payload["review_texts"])
		question, _ := payload["question"].(string)

		sumCtx, cancel := context.WithTimeout(ctx, s.cfg.SummarizeTimeout)
		defer cancel()
		return s.llm.Summarize(sumCtx, question, texts)
	}

	fmtCtx, cancel := context.WithTimeout(ctx, s.cfg.FormatTimeout)
	defer cancel()
	return s.llm.FormatAnswer(fmtCtx, prompt, selection.Name, selection.Args, payload)
}

// stringValues reads a string list out of a dispatch payload, where slices
// arrive as []any after JSON shaping.
func stringValues(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// finish logs the terminal state and returns the response. A failed log
// write is reported but never turns a computed answer into an error.
func (s *ChatService) finish(ctx context.Context, userID uuid.UUID, query string, resp *dto.ChatResponse) (*dto.ChatResponse, error) {
	argsJSON := "{}"
	if len(resp.ToolArgs) > 0 {
		if raw, err := json.Marshal(resp.ToolArgs); err == nil {
			argsJSON = string(raw)
		}
	}

	record := &models.ToolCallRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Query:     query,
		ToolUsed:  resp.ToolUsed,
		ToolArgs:  argsJSON,
		Answer:    resp.Answer,
		HasChart:  resp.ChartData != nil,
		CreatedAt: time.Now(),
	}
	if err := s.conversations.Append(ctx, record); err != nil {
		s.logger.Error("failed to store tool call record", zap.Error(err))
	}

	return resp, nil
}

// History returns the caller's most recent dispatches, newest first.
func (s *ChatService) History(ctx context.Context, userID uuid.UUID) ([]dto.HistoryEntry, error) {
	records, err := s.conversations.RecentByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, dto.HistoryEntry{
			Query:     r.Query,
			ToolUsed:  r.ToolUsed,
			Answer:    r.Answer,
			HasChart:  r.HasChart,
			Timestamp: r.CreatedAt.Format(time.RFC3339),
		})
	}

	return entries, nil
}

// Insights is the direct summarization path behind /analytics/insights: no
// tool selection, just scoped review texts fed to the summarizer.
func (s *ChatService) Insights(ctx context.Context, userID uuid.UUID, role string, req dto.InsightsRequest) (*dto.InsightsResponse, error) {
	scope, err := s.scopes.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	var reviews []models.Review
	switch {
	case req.ProductID != nil:
		reviews, err = s.metrics.TopHelpfulReviews(ctx, *req.ProductID, scope, summarizeReviewLimit)
	case req.Category != nil:
		reviews, err = s.metrics.TopHelpfulCategoryReviews(ctx, *req.Category, scope, summarizeReviewLimit)
	default:
		return nil, ErrInsightTargetMissing
	}
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if r.ReviewText != "" {
			texts = append(texts, r.ReviewText)
		}
	}
	if len(texts) == 0 {
		return &dto.InsightsResponse{Insights: errNoReviews}, nil
	}

	sumCtx, cancel := context.WithTimeout(ctx, s.cfg.SummarizeTimeout)
	defer cancel()
	insights, err := s.llm.Summarize(sumCtx, req.Question, texts)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			return &dto.InsightsResponse{Insights: unavailableAnswer, ReviewCount: len(texts)}, nil
		}
		return nil, err
	}

	return &dto.InsightsResponse{Insights: insights, ReviewCount: len(texts)}, nil
}

var ErrInsightTargetMissing = errors.New("either product_id or category is required")
