package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultTimeout bounds a single grading call.
	DefaultTimeout = 90 * time.Second

	defaultMimeType = "application/pdf"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clearmark",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clearmark",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model", "reason"})
)

// OpenAIConfig defines configuration options for the OpenAI-compatible grader.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against any OpenAI-compatible chat completion API
// that accepts inline documents and json_schema response formats.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OpenAIGrader{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/ClearMarkApp/backend/pkg/ai/openai"),
		logger: logger.With().Str("component", "ai_grader").Logger(),
	}, nil
}

// Model reports the configured model name.
func (g *OpenAIGrader) Model() string {
	return g.cfg.Model
}

// Grade sends the document, prompt and schema in one call and decodes the structured answer.
func (g *OpenAIGrader) Grade(parent context.Context, req GradingRequest) (GradingResult, error) {
	ctx, span := g.tracer.Start(parent, "ai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("questions", len(req.Questions)),
		attribute.Int("document_bytes", len(req.Document)),
	))
	defer span.End()

	schema, err := SchemaJSON(BuildResponseSchema(req.Questions))
	if err != nil {
		return GradingResult{}, g.fail(span, "schema", err)
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: BuildPrompt(req.Questions, req.Guidelines),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Document),
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   ResponseSchemaName,
				Schema: schema,
			},
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(callCtx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return GradingResult{}, g.fail(span, "timeout", fmt.Errorf("%w after %s: %v", ErrAITimeout, g.cfg.Timeout, err))
		}
		return GradingResult{}, g.fail(span, "service", fmt.Errorf("%w: %w", ErrAIService, err))
	}

	if len(resp.Choices) == 0 {
		return GradingResult{}, g.fail(span, "empty", fmt.Errorf("%w: no choices returned", ErrAIResponse))
	}

	content := resp.Choices[0].Message.Content
	result, err := DecodeGradingResult(content, schema)
	if err != nil {
		g.logger.Debug().Str("raw", content).Msg("undecodable grading response")
		return GradingResult{}, g.fail(span, "decode", err)
	}

	span.SetAttributes(
		attribute.Int("grades", len(result.Grades)),
		attribute.Int("usage.total_tokens", resp.Usage.TotalTokens),
	)

	return result, nil
}

func (g *OpenAIGrader) fail(span trace.Span, reason string, err error) error {
	aiFailures.WithLabelValues(g.cfg.Model, reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
