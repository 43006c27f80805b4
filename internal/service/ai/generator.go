package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

// FallbackReply is returned whenever the language model cannot be used.
const FallbackReply = "I'm here to support you. Could you tell me more about how you're feeling?"

// ErrResponderUnavailable marks turns generated while no language model is configured.
var ErrResponderUnavailable = errors.New("no language model configured")

// GeneratorConfig controls reply generation.
type GeneratorConfig struct {
	Timeout time.Duration
}

// Reply is the generated text and how it was produced.
type Reply struct {
	Text      string
	SessionID string
	Strategy  chat.Strategy
}

// Generator turns a user message and its sentiment into a supportive reply.
type Generator struct {
	responder Responder
	prompts   *TonePromptManager
	timeout   time.Duration
	newToken  func() string
}

// NewGenerator wraps responder. A nil responder always yields FallbackReply.
func NewGenerator(responder Responder, cfg GeneratorConfig) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		responder: responder,
		prompts:   NewTonePromptManager(),
		timeout:   timeout,
		newToken:  uuid.NewString,
	}
}

// Generate returns a reply for userText. Failures are logged and replaced by FallbackReply.
func (g *Generator) Generate(ctx context.Context, userText string, label chat.SentimentLabel, identity string) Reply {
	// Every call is a brand-new session; nothing is carried between turns.
	sessionID := fmt.Sprintf("companion_%s_%s", identity, g.newToken())

	text, err := g.respond(ctx, Request{
		SessionID: sessionID,
		System:    g.prompts.BuildSystemPrompt(label),
		Message:   userText,
	})
	if err != nil {
		log.Printf("[ai] response generation failed for session=%s, using fallback reply: %v", sessionID, err)
		return Reply{Text: FallbackReply, SessionID: sessionID, Strategy: chat.Fallback}
	}
	return Reply{Text: text, SessionID: sessionID, Strategy: chat.Primary}
}

// Available reports whether a language model is wired in.
func (g *Generator) Available() bool {
	return g != nil && g.responder != nil
}

func (g *Generator) respond(ctx context.Context, req Request) (text string, err error) {
	if g.responder == nil {
		return "", ErrResponderUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic in responder: %v", r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err = g.responder.Respond(callCtx, req)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
