package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jaspers-market/chatbridge/internal/observability/metrics"
	"github.com/jaspers-market/chatbridge/internal/orders"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

const (
	llmTimeout     = 30 * time.Second
	persistTimeout = 10 * time.Second
)

// Retriever supplies an appendable context fragment for a user query.
// Implementations return "" for no results; an error means the retrieval
// backend itself failed.
type Retriever interface {
	ContextForQuery(ctx context.Context, query string) (string, error)
}

// Responder turns an inbound user message into a user-safe reply. It
// augments the system prompt with retrieved context, calls the completion
// API, runs the order-extraction pipeline and triggers persistence for
// confirmed orders. Every failure degrades to FallbackMessage; Reply never
// returns an error.
type Responder struct {
	client    chatClient
	retriever Retriever
	appender  orders.Appender
	logger    *logging.Logger
	metrics   *metrics.BridgeMetrics

	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
}

// ResponderOption customizes a Responder.
type ResponderOption func(*Responder)

// WithRetriever wires a context retriever.
func WithRetriever(r Retriever) ResponderOption {
	return func(s *Responder) { s.retriever = r }
}

// WithMetrics wires bridge metrics.
func WithMetrics(m *metrics.BridgeMetrics) ResponderOption {
	return func(s *Responder) { s.metrics = m }
}

// WithSampling overrides temperature and max tokens.
func WithSampling(temperature float32, maxTokens int) ResponderOption {
	return func(s *Responder) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// WithSystemPrompt overrides the assistant prompt.
func WithSystemPrompt(prompt string) ResponderOption {
	return func(s *Responder) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewResponder builds a Responder. A nil appender is replaced with the
// log-only sink so order capture never hard-fails.
func NewResponder(client chatClient, appender orders.Appender, model string, logger *logging.Logger, opts ...ResponderOption) *Responder {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if appender == nil {
		appender = orders.NewLogAppender(logger)
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}

	return &Responder{
		client:       client,
		appender:     appender,
		logger:       logger,
		model:        model,
		temperature:  0.7,
		maxTokens:    800,
		systemPrompt: defaultSystemPrompt,
	}
}

// Reply produces the user-safe reply for a message. The returned text may
// be empty when the completion consisted solely of a structured block.
func (s *Responder) Reply(ctx context.Context, userText string) string {
	raw, err := s.complete(ctx, userText)
	if err != nil {
		s.logger.Error("completion failed, using fallback reply", "error", err)
		return FallbackMessage
	}

	extraction := ExtractOrder(raw)
	switch extraction.Outcome {
	case OutcomeNoBlock:
		s.logger.Debug("no order block in completion")
	case OutcomeInvalid:
		s.logger.Warn("order block discarded", "reason", extraction.Reason)
	case OutcomeValid:
		s.persistOrder(ctx, *extraction.Payload)
	}

	return extraction.VisibleText
}

func (s *Responder) complete(ctx context.Context, userText string) (string, error) {
	prompt := s.systemPrompt
	if s.retriever != nil {
		fragment, err := s.retriever.ContextForQuery(ctx, userText)
		if err != nil {
			return "", fmt.Errorf("conversation: context retrieval: %w", err)
		}
		if fragment != "" {
			prompt += "\n\n" + fragment
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	s.metrics.ObserveLLMLatency(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("conversation: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// persistOrder hands a confirmed order to the sink. Failure is logged and
// counted for operators but never rolls back the user-facing confirmation:
// the reply has priority over guaranteed durability on this path.
func (s *Responder) persistOrder(ctx context.Context, payload OrderPayload) {
	rec := payload.Record()

	persistCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := s.appender.AppendOrder(persistCtx, rec); err != nil {
		s.metrics.ObserveOrderPersisted("failed")
		s.logger.Error("order persistence failed, order lost unless recovered out of band",
			"customer", rec.CustomerName,
			"phone", rec.PhoneNumber,
			"error", err,
		)
		return
	}
	s.metrics.ObserveOrderPersisted("ok")
	s.logger.Info("order captured",
		"customer", rec.CustomerName,
		"items", rec.Items,
		"total", rec.Total,
	)
}
