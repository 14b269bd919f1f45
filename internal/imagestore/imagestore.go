// Package imagestore keeps meal photos and returns the URL a meal refers to.
package imagestore

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/proteinpath/protein-path-go/internal/apperr"
)

// MaxImageBytes is the largest decoded photo accepted.
const MaxImageBytes = 8 << 20

// Store persists a photo for a meal. Delete removes a photo by the URL Put
// returned.
type Store interface {
	Put(ctx context.Context, ownerID, mealID string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// Decode accepts raw base64 or a data URI and returns the image bytes.
// An empty string decodes to nil.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed image data URI", apperr.ErrValidation)
		}
		s = payload
	}

	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", apperr.ErrValidation, MaxImageBytes)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", apperr.ErrValidation)
	}
	return data, nil
}

// ContentType sniffs the image MIME type, defaulting to JPEG.
func ContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// DataURIStore embeds the photo in the meal itself.
type DataURIStore struct{}

// Put implements Store.
func (DataURIStore) Put(_ context.Context, _, _ string, data []byte) (string, error) {
	return "data:" + ContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Delete implements Store. There is nothing stored outside the meal.
func (DataURIStore) Delete(context.Context, string) error { return nil }
