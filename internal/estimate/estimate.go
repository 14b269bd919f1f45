// Package estimate turns a free-text meal description and/or a food photo
// into a nutrition estimate using a generative model.
package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/imagestore"
	"github.com/proteinpath/protein-path-go/internal/model"
)

const (
	defaultName   = "Unknown Meal"
	defaultWeight = "1 serving"
)

const systemInstruction = "You are an expert nutritionist. Be conservative but realistic with calorie and macro estimates. " +
	"Ensure you provide estimates for Protein, Carbs, Fats, and Sugar. Provide a single object response."

// Request is the input to one estimate. At least one field must be set.
type Request struct {
	Description string
	Image       []byte
}

// Prompt is what a Provider sends to its model.
type Prompt struct {
	System    string
	Text      string
	Image     []byte
	ImageMIME string
}

// Provider performs one model call and returns the raw response text.
// Failures are returned as *Error.
type Provider interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Client validates requests, calls a Provider once and normalizes its output.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a Client. A zero timeout leaves deadlines to ctx.
func NewClient(p Provider, timeout time.Duration) *Client {
	return &Client{provider: p, timeout: timeout}
}

// Estimate returns a normalized estimate for req. No network call is made
// when req carries neither a description nor an image.
func (c *Client) Estimate(ctx context.Context, req Request) (model.Estimate, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" && len(req.Image) == 0 {
		return model.Estimate{}, fmt.Errorf("%w: description or image is required", apperr.ErrValidation)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := buildPrompt(desc, req.Image)
	start := time.Now()
	raw, err := c.provider.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("estimation failed", "provider", c.provider.Name(), "error", err)
		return model.Estimate{}, err
	}

	est, err := parse(raw)
	if err != nil {
		slog.Warn("unusable estimation response", "provider", c.provider.Name(), "error", err)
		return model.Estimate{}, err
	}

	slog.Debug("estimation complete", "provider", c.provider.Name(), "name", est.Name, "duration", time.Since(start))
	return est, nil
}

func buildPrompt(desc string, image []byte) Prompt {
	p := Prompt{System: systemInstruction}
	if len(image) > 0 {
		p.Image = image
		p.ImageMIME = imagestore.ContentType(image)
	}

	const ask = "Identify the food and provide a detailed nutritional breakdown properly estimating calories, protein, fats, carbs, and sugar."
	switch {
	case desc != "" && len(image) > 0:
		p.Text = fmt.Sprintf("Analyze this meal description/image. %s Description: %q", ask, desc)
	case desc != "":
		p.Text = fmt.Sprintf("Analyze this meal description. %s Description: %q", ask, desc)
	default:
		p.Text = "Analyze this food image. " + ask
	}
	return p
}

// estimateBody mirrors the response schema. Pointers distinguish absent fields.
type estimateBody struct {
	Name            *string  `json:"name"`
	Calories        *float64 `json:"calories"`
	Protein         *float64 `json:"protein"`
	Carbs           *float64 `json:"carbs"`
	Fat             *float64 `json:"fat"`
	Sugar           *float64 `json:"sugar"`
	EstimatedWeight *string  `json:"estimatedWeight"`
	Confidence      *string  `json:"confidence"`
}

func parse(raw string) (model.Estimate, error) {
	cleaned := cleanResponse(raw)
	if cleaned == "" {
		return model.Estimate{}, failed("empty response", nil)
	}

	if !strings.HasPrefix(cleaned, "{") {
		return model.Estimate{}, failed("unparseable response", nil)
	}

	var body estimateBody
	if err := json.Unmarshal([]byte(cleaned), &body); err != nil {
		return model.Estimate{}, failed("unparseable response", err)
	}
	return normalize(body), nil
}

func normalize(b estimateBody) model.Estimate {
	return model.Estimate{
		Name: text(b.Name, defaultName),
		Nutrition: model.NutritionData{
			Calories:        amount(b.Calories),
			Protein:         amount(b.Protein),
			Carbs:           amount(b.Carbs),
			Fat:             amount(b.Fat),
			Sugar:           amount(b.Sugar),
			EstimatedWeight: text(b.EstimatedWeight, defaultWeight),
			Confidence:      confidence(b.Confidence),
		},
	}
}

func amount(v *float64) float64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func text(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return strings.TrimSpace(*v)
}

func confidence(v *string) model.Confidence {
	if v == nil {
		return ""
	}
	switch c := model.Confidence(strings.ToLower(strings.TrimSpace(*v))); c {
	case model.LowConfidence, model.MediumConfidence, model.HighConfidence:
		return c
	default:
		return ""
	}
}

// cleanResponse strips markdown fences and surrounding prose from a model reply.
func cleanResponse(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		s = s[start : end+1]
	}
	return s
}
