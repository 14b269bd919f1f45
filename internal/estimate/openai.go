package estimate

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

const schemaDescription = `You must respond with a valid JSON object matching this exact schema:
{
  "name": "string - A short, concise name of the identified food",
  "calories": "number - Estimated total calories (kcal)",
  "protein": "number - Estimated protein content (g)",
  "fat": "number - Estimated fat content (g)",
  "carbs": "number - Estimated carbohydrate content (g)",
  "sugar": "number - Estimated sugar content (g). Include added sugars and natural sugars",
  "estimatedWeight": "string - Estimated serving size or weight (e.g., '200g' or '1 bowl')",
  "confidence": "string - Low, Medium, or High confidence in this estimation"
}`

// OpenAI calls an OpenAI-compatible chat completions endpoint in JSON mode.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider. client may be nil.
func NewOpenAI(apiKey, model, baseURL string, client *http.Client) *OpenAI {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements Provider.
func (o *OpenAI) Generate(ctx context.Context, p Prompt) (string, error) {
	var content []chatPart
	if len(p.Image) > 0 {
		content = append(content, chatPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: "data:" + p.ImageMIME + ";base64," + base64.StdEncoding.EncodeToString(p.Image)},
		})
	}
	content = append(content, chatPart{Type: "text", Text: p.Text})

	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System + " Respond in valid JSON format.\n\n" + schemaDescription},
			{Role: "user", Content: content},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.7,
	}

	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var resp chatResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", failed("no response from model", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
