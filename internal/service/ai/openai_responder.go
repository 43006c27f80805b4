package ai

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	oaiprovider "github.com/zhouzirui/companionbot/backend/internal/provider/openai"
)

// OpenAIResponder sends requests through the OpenAI Responses API.
type OpenAIResponder struct {
	client          *openai.Client
	model           string
	maxOutputTokens int64
}

// NewOpenAIResponder builds a responder for model.
func NewOpenAIResponder(cfg oaiprovider.Config, model string, maxOutputTokens int64) (*OpenAIResponder, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("OPENAI_MODEL is not set")
	}
	client, err := oaiprovider.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 400
	}
	return &OpenAIResponder{client: client, model: model, maxOutputTokens: maxOutputTokens}, nil
}

// Respond generates the reply for req.
func (r *OpenAIResponder) Respond(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model:           r.model,
		MaxOutputTokens: openai.Int(r.maxOutputTokens),
		Instructions:    openai.String(req.System),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Message, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := oaiprovider.CallWithRetry(ctx, r.client, params)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", ErrEmptyReply
	}
	log.Printf("[ai] generated response for session=%s, model=%s, length=%d", req.SessionID, r.model, len(text))
	return text, nil
}
