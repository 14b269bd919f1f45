package model

import (
	"fmt"
	"time"
)

// MealType categorizes a meal.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// ParseMealType validates s. An empty string yields Snack.
func ParseMealType(s string) (MealType, error) {
	switch t := MealType(s); t {
	case "":
		return Snack, nil
	case Breakfast, Lunch, Dinner, Snack:
		return t, nil
	default:
		return "", fmt.Errorf("unknown meal type %q", s)
	}
}

// Confidence is the estimator's self-reported confidence.
type Confidence string

const (
	LowConfidence    Confidence = "low"
	MediumConfidence Confidence = "medium"
	HighConfidence   Confidence = "high"
)

// NutritionData holds best-effort estimates, not measured values.
type NutritionData struct {
	Calories        float64    `json:"calories"`
	Protein         float64    `json:"protein"`
	Carbs           float64    `json:"carbs"`
	Fat             float64    `json:"fat"`
	Sugar           float64    `json:"sugar"`
	EstimatedWeight string     `json:"estimatedWeight,omitempty"`
	Confidence      Confidence `json:"confidence,omitempty"`
}

// Meal is one logged food-intake event. Timestamp is epoch milliseconds.
type Meal struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Timestamp   int64         `json:"timestamp"`
	Nutrition   NutritionData `json:"nutrition"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	Description string        `json:"description,omitempty"`
	Type        MealType      `json:"type"`
	OwnerID     string        `json:"ownerId"`
}

// Time returns the meal timestamp as a time.Time.
func (m Meal) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// MealRequest represents a pre-estimated meal submitted for insertion.
type MealRequest struct {
	Name        string        `json:"name"`
	Timestamp   int64         `json:"timestamp"`
	Nutrition   NutritionData `json:"nutrition"`
	ImageURL    string        `json:"imageUrl"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
}

// CaptureRequest represents a description and/or photo to estimate and log.
// Image is base64 encoded, optionally as a data URI.
type CaptureRequest struct {
	Description string `json:"description"`
	Image       string `json:"image"`
	Type        string `json:"type"`
}
