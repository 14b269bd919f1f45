package model

// MacroProgress is consumption against one daily target.
type MacroProgress struct {
	Consumed float64 `json:"consumed"`
	Goal     float64 `json:"goal"`
	Percent  float64 `json:"percent"`
}

// DaySummary aggregates one calendar day of meals.
type DaySummary struct {
	Date     string        `json:"date"`
	Meals    []Meal        `json:"meals"`
	Calories MacroProgress `json:"calories"`
	Protein  MacroProgress `json:"protein"`
	Carbs    MacroProgress `json:"carbs"`
	Fat      MacroProgress `json:"fat"`
	Sugar    MacroProgress `json:"sugar"`
}
