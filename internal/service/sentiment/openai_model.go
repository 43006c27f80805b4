package sentiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	oaiprovider "github.com/zhouzirui/companionbot/backend/internal/provider/openai"
)

// OpenAIConfig selects the model used for structured sentiment output.
type OpenAIConfig struct {
	Client oaiprovider.Config
	Model  string
}

type openAIVerdict struct {
	Label string  `json:"label" jsonschema:"enum=POSITIVE,enum=NEGATIVE,enum=NEUTRAL"`
	Score float64 `json:"score" jsonschema:"description=Confidence between 0 and 1"`
}

var openAIVerdictSchema = oaiprovider.GenerateSchema[openAIVerdict]()

// OpenAIModel classifies text through the Responses API with a strict JSON schema.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAILoader returns a Loader backed by an OpenAI compatible endpoint.
func NewOpenAILoader(cfg OpenAIConfig) Loader {
	return func(ctx context.Context) (Model, error) {
		if cfg.Model == "" {
			return nil, errors.New("SENTIMENT_OPENAI_MODEL is not set")
		}
		client, err := oaiprovider.NewClient(cfg.Client)
		if err != nil {
			return nil, err
		}
		return &OpenAIModel{client: client, model: cfg.Model}, nil
	}
}

// Predict returns the model's verdict for text.
func (m *OpenAIModel) Predict(ctx context.Context, text string) (Prediction, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SentimentVerdict",
			Schema:      openAIVerdictSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Sentiment label and confidence"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           m.model,
		MaxOutputTokens: openai.Int(100),
		Instructions:    openai.String(sentimentSystemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := oaiprovider.CallWithRetry(ctx, m.client, params)
	if err != nil {
		return Prediction{}, err
	}

	var verdict openAIVerdict
	if err := oaiprovider.DecodeJSON(resp.OutputText(), &verdict); err != nil {
		return Prediction{}, fmt.Errorf("unmarshal sentiment verdict: %w", err)
	}
	return Prediction{Label: verdict.Label, Score: verdict.Score}, nil
}
