package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HFConfig points at a text-classification inference endpoint
// (for example distilbert-base-uncased-finetuned-sst-2-english).
type HFConfig struct {
	URL   string
	Token string
}

// HFModel calls a hosted text-classification model over HTTP.
type HFModel struct {
	url    string
	token  string
	client *http.Client
}

// NewHFLoader returns a Loader that builds an HFModel and probes it once.
func NewHFLoader(cfg HFConfig, client *http.Client) Loader {
	return func(ctx context.Context) (Model, error) {
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("SENTIMENT_HF_URL is not set")
		}
		if client == nil {
			client = http.DefaultClient
		}
		model := &HFModel{url: cfg.URL, token: cfg.Token, client: client}
		if _, err := model.Predict(ctx, "hello"); err != nil {
			return nil, fmt.Errorf("probe sentiment endpoint: %w", err)
		}
		return model, nil
	}
}

type hfScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Predict returns the highest scoring label for text.
func (m *HFModel) Predict(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(map[string]any{"inputs": text})
	if err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("sentiment endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	scores, err := decodeHFScores(payload)
	if err != nil {
		return Prediction{}, err
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return Prediction{Label: best.Label, Score: best.Score}, nil
}

// decodeHFScores accepts both [[{label,score}]] and [{label,score}] shapes.
func decodeHFScores(payload []byte) ([]hfScore, error) {
	var nested [][]hfScore
	if err := json.Unmarshal(payload, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	var flat []hfScore
	if err := json.Unmarshal(payload, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	return nil, fmt.Errorf("unexpected sentiment payload: %s", truncateForLog(string(payload), 200))
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
