package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	oaiprovider "github.com/zhouzirui/companionbot/backend/internal/provider/openai"
)

// LLMModel classifies text with a chat model.
type LLMModel struct {
	classifier compose.Runnable[map[string]any, *schema.Message]
}

// NewLLMLoader compiles a classification chain on top of the chat model returned by newModel.
func NewLLMLoader(newModel func(ctx context.Context) (model.ChatModel, error)) Loader {
	return func(ctx context.Context) (Model, error) {
		chatModel, err := newModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewLLMModel(ctx, chatModel)
	}
}

// NewLLMModel builds the classifier chain.
func NewLLMModel(ctx context.Context, chatModel model.ChatModel) (*LLMModel, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(sentimentSystemPrompt),
		schema.UserMessage("{text}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile sentiment classifier chain: %w", err)
	}
	return &LLMModel{classifier: runnable}, nil
}

type classifierPayload struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Predict asks the model for a JSON verdict and parses it.
func (m *LLMModel) Predict(ctx context.Context, text string) (Prediction, error) {
	msg, err := m.classifier.Invoke(ctx, map[string]any{"text": text})
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier invoke failed: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Prediction{}, fmt.Errorf("classifier returned empty output")
	}

	var payload classifierPayload
	if err := oaiprovider.DecodeJSON(msg.Content, &payload); err != nil {
		return Prediction{}, fmt.Errorf("classifier output parse failed: %w", err)
	}
	if strings.TrimSpace(payload.Label) == "" {
		return Prediction{}, fmt.Errorf("classifier output missing label")
	}
	return Prediction{Label: payload.Label, Score: payload.Score}, nil
}

const sentimentSystemPrompt = "You are a sentiment classifier for a mental health support chat. Read the user's message and decide whether its emotional tone is POSITIVE, NEGATIVE or NEUTRAL.\nReply with a single JSON object only, with the fields label (one of POSITIVE, NEGATIVE, NEUTRAL) and score (your confidence, a number between 0 and 1). Do not add any other text."
