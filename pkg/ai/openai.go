package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
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

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of AI completion requests",
	}, []string{"model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of AI completion failures",
	}, []string{"model", "retryable"})
)

// OpenAIConfig defines configuration options for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIProvider implements Provider against the OpenAI chat completion API,
// or any OpenAI-compatible deployment when BaseURL is set.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIProvider builds a new provider using the supplied configuration.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return newOpenAIProviderWithClient(openai.NewClientWithConfig(config), cfg)
}

// newOpenAIProviderWithClient wires a pre-built client, used for
// OpenAI-compatible deployments such as Azure.
func newOpenAIProviderWithClient(client *openai.Client, cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/mithorizon7/AIAssignmentProMH-sub001/pkg/ai/openai"),
		logger: logger,
	}, nil
}

// Complete sends the prompt segments to OpenAI and returns the raw completion.
func (p *OpenAIProvider) Complete(parent context.Context, parts []PromptPart, systemPrompt string) (RawCompletion, error) {
	ctx, span := p.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
		attribute.Int("prompt.parts", len(parts)),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, p.buildUserMessage(parts))

	request := openai.ChatCompletionRequest{
		Model:          p.cfg.Model,
		MaxTokens:      p.cfg.MaxTokens,
		Temperature:    p.cfg.Temperature,
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues(p.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		providerErr := p.classify(err)
		completionFailures.WithLabelValues(p.cfg.Model, fmt.Sprintf("%t", providerErr.Retryable)).Inc()
		span.RecordError(providerErr)
		span.SetStatus(codes.Error, providerErr.Error())
		return RawCompletion{}, providerErr
	}

	if len(resp.Choices) == 0 {
		providerErr := NewProviderError("openai", false, fmt.Errorf("no choices returned"))
		completionFailures.WithLabelValues(p.cfg.Model, "false").Inc()
		span.RecordError(providerErr)
		span.SetStatus(codes.Error, providerErr.Error())
		return RawCompletion{}, providerErr
	}

	completion := RawCompletion{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		ModelName: resp.Model,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if completion.ModelName == "" {
		completion.ModelName = p.cfg.Model
	}

	return completion, nil
}

// buildUserMessage converts prompt segments into a chat message. Image
// segments become image-URL parts; segment kinds the chat API cannot carry
// degrade to a descriptive text placeholder instead of failing the call.
func (p *OpenAIProvider) buildUserMessage(parts []PromptPart) openai.ChatCompletionMessage {
	multimodal := false
	for _, part := range parts {
		if part.Kind == SegmentImage {
			multimodal = true
			break
		}
	}

	if !multimodal {
		builder := strings.Builder{}
		for i, part := range parts {
			if i > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(p.renderTextual(part))
		}
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: builder.String(),
		}
	}

	content := make([]openai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		switch part.Kind {
		case SegmentImage:
			content = append(content, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: p.imageURL(part)},
			})
		default:
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.renderTextual(part),
			})
		}
	}

	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: content,
	}
}

func (p *OpenAIProvider) renderTextual(part PromptPart) string {
	if part.Kind == SegmentText {
		return part.Text
	}

	reference := part.URL
	if reference == "" {
		reference = fmt.Sprintf("%d bytes inline", len(part.Data))
	}
	p.logger.Warn().
		Str("segment", string(part.Kind)).
		Str("mime_type", part.MimeType).
		Msg("segment type not supported by provider, degrading to placeholder")

	return fmt.Sprintf("[%s attachment (%s) could not be analysed directly: %s]", part.Kind, part.MimeType, reference)
}

func (p *OpenAIProvider) imageURL(part PromptPart) string {
	if part.URL != "" {
		return part.URL
	}
	encoded := base64.StdEncoding.EncodeToString(part.Data)
	return fmt.Sprintf("data:%s;base64,%s", part.MimeType, encoded)
}

// classify maps transport and API failures onto the ProviderError taxonomy.
func (p *OpenAIProvider) classify(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return NewProviderError("openai", true, err)
		case isContentPolicyCode(apiErr.Code):
			return NewProviderError("openai", false, err)
		default:
			return NewProviderError("openai", false, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewProviderError("openai", true, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError("openai", reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500, err)
	}

	// Unrecognised failures are treated as transient so the queue may retry.
	return NewProviderError("openai", true, err)
}

func isContentPolicyCode(code any) bool {
	str, ok := code.(string)
	if !ok {
		return false
	}
	str = strings.ToLower(str)
	return strings.Contains(str, "content_policy") || strings.Contains(str, "content_filter")
}
