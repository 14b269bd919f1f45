package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/config"
)

const estimateJSON = `{"name":"Oatmeal","calories":350,"protein":12,"carbs":60,"fat":6}`

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": estimateJSON}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewGemini("secret", "gemini-test", srv.URL, srv.Client())
	c := NewClient(g, 0)

	est, err := c.Estimate(context.Background(), Request{Description: "oats", Image: []byte("\x89PNG\r\n\x1a\n")})
	if err != nil {
		t.Fatalf("Estimate() unexpected error: %v", err)
	}
	if est.Name != "Oatmeal" || est.Nutrition.Calories != 350 {
		t.Errorf("Estimate() = %+v", est)
	}

	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q, want %q", gotKey, "secret")
	}

	cfg, _ := gotBody["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", cfg["responseMimeType"])
	}
	if _, ok := cfg["responseSchema"]; !ok {
		t.Error("responseSchema missing")
	}

	contents, _ := gotBody["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents = %v", gotBody["contents"])
	}
	parts, _ := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("parts = %v, want image and text", parts)
	}
	inline, _ := parts[0].(map[string]any)["inline_data"].(map[string]any)
	if inline["mime_type"] != "image/png" {
		t.Errorf("inline mime_type = %v, want image/png", inline["mime_type"])
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": estimateJSON}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", "gpt-test", srv.URL+"/", srv.Client())
	est, err := NewClient(o, 0).Estimate(context.Background(), Request{Description: "oats"})
	if err != nil {
		t.Fatalf("Estimate() unexpected error: %v", err)
	}
	if est.Name != "Oatmeal" {
		t.Errorf("Name = %q, want %q", est.Name, "Oatmeal")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-test" {
		t.Errorf("model = %v", gotBody["model"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", gotBody["response_format"])
	}
}

func TestProviderStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Category
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: InvalidCredentials},
		{name: "forbidden", status: http.StatusForbidden, want: InvalidCredentials},
		{name: "quota", status: http.StatusTooManyRequests, want: QuotaExceeded},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: Transient},
		{name: "bad request", status: http.StatusBadRequest, want: Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":"nope"}`)
			}))
			defer srv.Close()

			for _, p := range []Provider{
				NewGemini("k", "m", srv.URL, srv.Client()),
				NewOpenAI("k", "m", srv.URL, srv.Client()),
			} {
				_, err := p.Generate(context.Background(), Prompt{Text: "x"})
				var eerr *Error
				if !errors.As(err, &eerr) {
					t.Fatalf("%s: Generate() error = %v, want *Error", p.Name(), err)
				}
				if eerr.Category != tt.want || eerr.Status != tt.status {
					t.Errorf("%s: got category %q status %d, want %q %d", p.Name(), eerr.Category, eerr.Status, tt.want, tt.status)
				}
				if !errors.Is(err, apperr.ErrEstimation) {
					t.Errorf("%s: error does not match ErrEstimation", p.Name())
				}
			}
		})
	}
}

func TestProviderEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	for _, p := range []Provider{
		NewGemini("k", "m", srv.URL, srv.Client()),
		NewOpenAI("k", "m", srv.URL, srv.Client()),
	} {
		_, err := p.Generate(context.Background(), Prompt{Text: "x"})
		if !errors.Is(err, apperr.ErrEstimation) {
			t.Errorf("%s: Generate() error = %v, want ErrEstimation", p.Name(), err)
		}
	}
}

func TestProviderNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "chat") {
			io.WriteString(w, `{"choices":[]}`)
			return
		}
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	for _, p := range []Provider{
		NewGemini("k", "m", srv.URL, srv.Client()),
		NewOpenAI("k", "m", srv.URL, srv.Client()),
	} {
		_, err := p.Generate(context.Background(), Prompt{Text: "x"})
		if !errors.Is(err, apperr.ErrEstimation) {
			t.Errorf("%s: Generate() error = %v, want ErrEstimation", p.Name(), err)
		}
	}
}

func TestProviderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewGemini("k", "m", url, nil).Generate(context.Background(), Prompt{Text: "x"})
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Category != Transient {
		t.Errorf("Generate() error = %v, want transient *Error", err)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: "gemini", want: "gemini"},
		{provider: "openai", want: "openai"},
		{provider: "", want: "gemini"},
		{provider: "llama", wantErr: true},
	}

	for _, tt := range tests {
		p, err := NewProvider(config.EstimationConfig{Provider: tt.provider})
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewProvider(%q) expected error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewProvider(%q) unexpected error: %v", tt.provider, err)
		}
		if p.Name() != tt.want {
			t.Errorf("NewProvider(%q).Name() = %q, want %q", tt.provider, p.Name(), tt.want)
		}
	}
}
