package estimate

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Gemini calls the Gemini generateContent REST endpoint with a response schema.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini provider. client may be nil.
func NewGemini(apiKey, model, baseURL string, client *http.Client) *Gemini {
	if client == nil {
		client = &http.Client{}
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var nutritionSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"name":            map[string]any{"type": "STRING", "description": "A short, concise name of the identified food."},
		"calories":        map[string]any{"type": "NUMBER", "description": "Estimated total calories (kcal)."},
		"protein":         map[string]any{"type": "NUMBER", "description": "Estimated protein content (g)."},
		"fat":             map[string]any{"type": "NUMBER", "description": "Estimated fat content (g)."},
		"carbs":           map[string]any{"type": "NUMBER", "description": "Estimated carbohydrate content (g)."},
		"sugar":           map[string]any{"type": "NUMBER", "description": "Estimated sugar content (g). Include added sugars and natural sugars."},
		"estimatedWeight": map[string]any{"type": "STRING", "description": "Estimated serving size or weight (e.g., '200g' or '1 bowl')."},
		"confidence":      map[string]any{"type": "STRING", "description": "Low, Medium, or High confidence in this estimation."},
	},
	"required": []string{"name", "calories", "protein", "carbs", "fat"},
}

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, p Prompt) (string, error) {
	var parts []geminiPart
	if len(p.Image) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: p.ImageMIME,
			Data:     base64.StdEncoding.EncodeToString(p.Image),
		}})
	}
	parts = append(parts, geminiPart{Text: p.Text})

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   nutritionSchema,
		},
	}
	if p.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))

	var resp geminiResponse
	if err := postJSON(ctx, g.client, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		for _, part := range c.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", failed("no response from model", nil)
	}
	return sb.String(), nil
}
