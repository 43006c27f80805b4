package sentiment

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	analysis "github.com/zhouzirui/companionbot/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

// Prediction is the raw output of a sentiment model, in the model's own vocabulary.
type Prediction struct {
	Label string
	Score float64
}

// Model scores a single piece of text.
type Model interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

// Loader builds the model. It runs at most once per Classifier.
type Loader func(ctx context.Context) (Model, error)

// Result is the classifier output, always inside the closed label set.
type Result struct {
	Label    chat.SentimentLabel
	Score    float64
	Strategy chat.Strategy
}

// Config controls the classifier.
type Config struct {
	// LoadTimeout bounds model initialisation.
	LoadTimeout time.Duration
	// PredictTimeout bounds a single prediction.
	PredictTimeout time.Duration
}

const (
	stateUnloaded int32 = iota
	stateModel
	stateHeuristic
)

// Classifier wraps an optional model with the keyword heuristic.
type Classifier struct {
	loader         Loader
	loadTimeout    time.Duration
	predictTimeout time.Duration
	fallback       func(text string) analysis.Decision

	once  sync.Once
	model Model
	state atomic.Int32
}

// NewClassifier creates a classifier. A nil loader means heuristic only.
func NewClassifier(loader Loader, cfg Config) *Classifier {
	loadTimeout := cfg.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 60 * time.Second
	}
	predictTimeout := cfg.PredictTimeout
	if predictTimeout <= 0 {
		predictTimeout = 10 * time.Second
	}
	return &Classifier{
		loader:         loader,
		loadTimeout:    loadTimeout,
		predictTimeout: predictTimeout,
		fallback:       analysis.Analyze,
	}
}

// Classify returns a label and confidence for text. It never fails.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	truncated := analysis.Truncate(text)

	model := c.resolve(ctx)
	if model == nil {
		decision := c.fallback(truncated)
		return Result{Label: decision.Label, Score: decision.Score, Strategy: chat.Fallback}
	}

	prediction, err := c.predict(ctx, model, truncated)
	if err != nil {
		log.Printf("[sentiment] model prediction failed, reporting neutral: %v", err)
		return Result{Label: chat.Neutral, Score: analysis.NeutralScore, Strategy: chat.Fallback}
	}

	return Result{
		Label:    NormalizeLabel(prediction.Label),
		Score:    clampScore(prediction.Score),
		Strategy: chat.Primary,
	}
}

// Mode reports "pending" before first use, then "model" or "heuristic".
func (c *Classifier) Mode() string {
	switch c.state.Load() {
	case stateModel:
		return "model"
	case stateHeuristic:
		return "heuristic"
	default:
		return "pending"
	}
}

// Warm triggers model initialisation ahead of the first message.
func (c *Classifier) Warm(ctx context.Context) {
	c.resolve(ctx)
}

func (c *Classifier) resolve(ctx context.Context) Model {
	c.once.Do(func() {
		if c.loader == nil {
			log.Println("[sentiment] no sentiment model configured, using keyword heuristic")
			c.state.Store(stateHeuristic)
			return
		}

		// Initialisation outlives the request that happens to trigger it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		model, err := c.load(loadCtx)
		if err != nil {
			log.Printf("[sentiment] failed to load sentiment model, using keyword heuristic for the rest of the process: %v", err)
			c.state.Store(stateHeuristic)
			return
		}
		c.model = model
		c.state.Store(stateModel)
		log.Println("[sentiment] sentiment model loaded")
	})
	return c.model
}

func (c *Classifier) load(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("panic during model load: %v", r)
		}
	}()
	model, err = c.loader(ctx)
	if err == nil && model == nil {
		err = fmt.Errorf("loader returned no model")
	}
	return model, err
}

func (c *Classifier) predict(ctx context.Context, model Model, text string) (prediction Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during prediction: %v", r)
		}
	}()
	predictCtx, cancel := context.WithTimeout(ctx, c.predictTimeout)
	defer cancel()
	return model.Predict(predictCtx, text)
}

// NormalizeLabel maps model vocabularies (POSITIVE, pos, LABEL_1, ...) onto the closed set.
func NormalizeLabel(raw string) chat.SentimentLabel {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case upper == "LABEL_1" || strings.HasPrefix(upper, "POS"):
		return chat.Positive
	case upper == "LABEL_0" || strings.HasPrefix(upper, "NEG"):
		return chat.Negative
	default:
		return chat.Neutral
	}
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return analysis.NeutralScore
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
