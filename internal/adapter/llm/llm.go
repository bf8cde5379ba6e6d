// Package llm implements the assistant port on top of langchaingo models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"cura/internal/config"
	"cura/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// geminiBaseURL is Gemini's OpenAI-compatible endpoint.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// SystemInstruction sets the assistant persona for every conversation.
const SystemInstruction = `You are CURA, an advanced AI healthcare assistant. Your persona is empathetic, warm, and highly professional. You communicate with the clarity and compassion of a trusted healthcare advisor.

Your primary functions are:
1.  **Symptom Analysis**: When a user describes their symptoms, you should help them understand potential causes in a structured way. You can list common conditions associated with those symptoms but avoid making a definitive diagnosis.
2.  **First-Aid and General Advice**: Provide clear, safe, and actionable first-aid steps for common, non-life-threatening situations. For general health questions, offer advice based on widely accepted medical knowledge.
3.  **Human-like Conversation**: Engage in natural, flowing conversation. Use empathetic language, show you are listening (e.g., "I understand that must be worrying," or "Thank you for sharing that with me."), and maintain a supportive tone.`

// ErrEmptyResponse is returned when the model produces no text.
var ErrEmptyResponse = errors.New("model returned no content")

// Assistant opens conversations against a single langchaingo model.
type Assistant struct {
	model     llms.Model
	modelName string
	system    string
	log       *slog.Logger
}

// Ensure interfaces are met.
var _ domain.Assistant = (*Assistant)(nil)

// New creates an assistant for the configured provider. The "none" provider
// yields domain.ErrProviderUnavailable.
func New(cfg config.Config, logger *slog.Logger) (*Assistant, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderNone, "":
		return nil, domain.ErrProviderUnavailable

	case config.ProviderGoogleAI:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.GeminiAPIKey),
			openai.WithBaseURL(geminiBaseURL),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewWithModel(model, cfg.LLMModel, logger), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(model llms.Model, modelName string, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		model:     model,
		modelName: modelName,
		system:    SystemInstruction,
		log:       logger,
	}
}

// Model returns the model name.
func (a *Assistant) Model() string {
	return a.modelName
}

// NewConversation starts a conversation that already remembers history.
func (a *Assistant) NewConversation(ctx context.Context, history []domain.Turn) (domain.Conversation, error) {
	msgs := make([]llms.MessageContent, 0, len(history)+1)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, a.system))
	for _, t := range history {
		msgs = append(msgs, llms.TextParts(messageType(t.Role), t.Text))
	}
	a.log.Debug("llm: conversation opened", "model", a.modelName, "turns", len(history))
	return &conversation{model: a.model, messages: msgs}, nil
}

func messageType(r domain.Role) llms.ChatMessageType {
	if r == domain.RoleUser {
		return llms.ChatMessageTypeHuman
	}
	return llms.ChatMessageTypeAI
}

// conversation keeps the provider-side history of one session. Failed turns
// are not remembered.
type conversation struct {
	mu       sync.Mutex
	model    llms.Model
	messages []llms.MessageContent
}

func (c *conversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := append(slices.Clone(c.messages), llms.TextParts(llms.ChatMessageTypeHuman, text))
	resp, err := c.model.GenerateContent(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyResponse
	}

	reply := resp.Choices[0].Content
	c.messages = append(msgs, llms.TextParts(llms.ChatMessageTypeAI, reply))
	return reply, nil
}
