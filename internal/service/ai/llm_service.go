package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Request is one self-contained exchange with the language model.
type Request struct {
	SessionID string
	System    string
	Message   string
}

// Responder produces a single complete reply for a request.
type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// ChainResponder runs requests through an eino chain on top of a chat model.
type ChainResponder struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainResponder compiles the system + query chain for chatModel.
func NewChainResponder(ctx context.Context, chatModel model.ChatModel) (*ChainResponder, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainResponder{chain: runnable}, nil
}

// Respond generates the reply for req.
func (r *ChainResponder) Respond(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"system": req.System,
		"query":  req.Message,
	}

	response, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyReply
	}

	log.Printf("[ai] generated response for session=%s, length=%d", req.SessionID, len(response.Content))
	return strings.TrimSpace(response.Content), nil
}
