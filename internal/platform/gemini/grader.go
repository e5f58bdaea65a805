package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/cramdeck/internal/config"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("essay").Parse(promptSource))

type promptData struct {
	Filename    string
	ContentType string
	IsImage     bool
}

// contentGenerator is the part of genai.Models the grader calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// EssayGrader sends essays to Gemini for feedback.
type EssayGrader struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewEssayGrader creates a grader from LLM configuration.
func NewEssayGrader(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*EssayGrader, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}
	return newEssayGrader(client.Models, cfg.ModelName, logger), nil
}

func newEssayGrader(models contentGenerator, model string, logger *slog.Logger) *EssayGrader {
	if logger == nil {
		logger = slog.Default()
	}
	return &EssayGrader{
		models: models,
		model:  model,
		logger: logger.With("component", "gemini_essay_grader", "model", model),
	}
}

func buildPrompt(filename, contentType string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		Filename:    filename,
		ContentType: contentType,
		IsImage:     strings.HasPrefix(contentType, "image/"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// GradeEssay returns written feedback for the file. Failures are not retried.
func (g *EssayGrader) GradeEssay(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyEssay
	}
	prompt, err := buildPrompt(filename, contentType)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, contentType),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	}

	start := time.Now()
	g.logger.InfoContext(ctx, "requesting essay feedback", "content_type", contentType, "size", len(data))

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	feedback, err := extractFeedback(resp)
	if err != nil {
		g.logger.WarnContext(ctx, "unusable Gemini response", "error", err)
		return "", err
	}

	g.logger.InfoContext(ctx, "essay feedback received",
		"duration", time.Since(start),
		"feedback_length", len(feedback))
	return feedback, nil
}

func extractFeedback(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", invalidResponse("nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", blocked(fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return "", invalidResponse("no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", blocked("response blocked")
	}
	if candidate.Content == nil {
		return "", invalidResponse("empty content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", invalidResponse("no text in response")
	}
	return text, nil
}
