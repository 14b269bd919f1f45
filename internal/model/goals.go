package model

// UserGoals holds daily macro targets.
type UserGoals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Sugar    float64 `json:"sugar"`
}

// DefaultGoals returns the targets used when nothing has been saved.
func DefaultGoals() UserGoals {
	return UserGoals{
		Calories: 2500,
		Protein:  150,
		Carbs:    300,
		Fat:      70,
		Sugar:    50,
	}
}

// WithDefaults replaces every non-positive target with its default.
func (g UserGoals) WithDefaults() UserGoals {
	d := DefaultGoals()
	if g.Calories <= 0 {
		g.Calories = d.Calories
	}
	if g.Protein <= 0 {
		g.Protein = d.Protein
	}
	if g.Carbs <= 0 {
		g.Carbs = d.Carbs
	}
	if g.Fat <= 0 {
		g.Fat = d.Fat
	}
	if g.Sugar <= 0 {
		g.Sugar = d.Sugar
	}
	return g
}

// Valid reports whether every target is positive.
func (g UserGoals) Valid() bool {
	return g.Calories > 0 && g.Protein > 0 && g.Carbs > 0 && g.Fat > 0 && g.Sugar > 0
}
