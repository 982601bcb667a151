package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"insightlens/pkg/config"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const systemPrompt = `You are an analytics assistant for a customer satisfaction platform.
You answer questions about product reviews, NPS scores, sentiment and trends.
Pick the single most relevant tool for the user's question. When a question
mentions a product id, pass it through unchanged. Keep answers concise and
grounded strictly in the tool results you are given; never invent numbers.`

const summaryPrompt = `Summarize the following customer reviews. Structure the answer with
exactly these markdown headers: ### Summary, ### Key Complaints,
### Positive Highlights, ### Recommendations. Base every statement on the
review texts below.`

// ErrLLMUnavailable marks timeouts and quota rejections from the model
// provider. The orchestrator downgrades these to a well-formed answer
// instead of failing the request.
var ErrLLMUnavailable = errors.New("language model temporarily unavailable")

// ToolSelection is the outcome of the routing call. Either Name is set, or
// FreeText carries the model's direct answer for questions that need no tool.
type ToolSelection struct {
	Name     string
	Args     map[string]any
	FreeText string
}

// GeminiService wraps the Gemini API with two model handles: one with the
// tool catalog attached and function calling forced, one plain text handle
// for formatting and summaries.
type GeminiService struct {
	client    *genai.Client
	toolModel *genai.GenerativeModel
	textModel *genai.GenerativeModel
	logger    *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, tools []*genai.Tool, logger *zap.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	toolModel := client.GenerativeModel(cfg.Model)
	toolModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	toolModel.Tools = tools
	toolModel.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode: genai.FunctionCallingAny,
		},
	}

	textModel := client.GenerativeModel(cfg.Model)
	textModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	return &GeminiService{
		client:    client,
		toolModel: toolModel,
		textModel: textModel,
		logger:    logger,
	}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// SelectTool asks the model to route the query onto the tool catalog.
func (s *GeminiService) SelectTool(ctx context.Context, query string) (*ToolSelection, error) {
	resp, err := s.toolModel.GenerateContent(ctx, genai.Text(query))
	if err != nil {
		return nil, s.classify(err)
	}

	for _, part := range candidateParts(resp) {
		if fc, ok := part.(genai.FunctionCall); ok {
			return &ToolSelection{Name: fc.Name, Args: fc.Args}, nil
		}
	}

	// Function calling is forced, but the API can still return plain text
	// for out-of-domain questions. That text is the final answer.
	text := candidateText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}
	return &ToolSelection{FreeText: text}, nil
}

// FormatAnswer turns a tool result into prose. The tool call and its result
// are replayed as conversation history so the model narrates exactly the
// numbers the engine produced.
func (s *GeminiService) FormatAnswer(ctx context.Context, query, toolName string, args, result map[string]any) (string, error) {
	session := s.textModel.StartChat()
	session.History = []*genai.Content{
		genai.NewUserContent(genai.Text(query)),
		{
			Role:  "model",
			Parts: []genai.Part{genai.FunctionCall{Name: toolName, Args: args}},
		},
	}

	resp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     toolName,
		Response: result,
	})
	if err != nil {
		return "", s.classify(err)
	}

	text := candidateText(resp)
	if text == "" {
		return "", fmt.Errorf("empty formatting response")
	}
	return text, nil
}

// Summarize produces the structured review summary. The review texts are the
// only evidence given to the model.
func (s *GeminiService) Summarize(ctx context.Context, question string, reviewTexts []string) (string, error) {
	resp, err := s.textModel.GenerateContent(ctx, genai.Text(buildSummaryPrompt(question, reviewTexts)))
	if err != nil {
		return "", s.classify(err)
	}

	text := candidateText(resp)
	if text == "" {
		return "", fmt.Errorf("empty summary response")
	}
	return text, nil
}

func buildSummaryPrompt(question string, reviewTexts []string) string {
	var b strings.Builder
	b.WriteString(summaryPrompt)
	if question != "" {
		b.WriteString("\n\nFocus on: ")
		b.WriteString(question)
	}
	b.WriteString("\n\nReviews:\n")
	for i, text := range reviewTexts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, text)
	}
	return b.String()
}

// classify maps provider failures the caller can degrade on (deadline,
// quota, overload) to ErrLLMUnavailable and passes everything else through.
// Cancellation is not degradation: a caller-aborted request keeps its
// original error so it is never recorded as a provider outage.
func (s *GeminiService) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("gemini call timed out", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code >= 500) {
		s.logger.Warn("gemini rejected call", zap.Int("code", apiErr.Code), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	return err
}

func candidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func candidateText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, part := range candidateParts(resp) {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
