package model

// EstimateRequest represents an estimate-only request. Image is base64 encoded,
// optionally as a data URI.
type EstimateRequest struct {
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Estimate is a normalized nutrition estimate.
type Estimate struct {
	Name      string        `json:"name"`
	Nutrition NutritionData `json:"nutrition"`
}
