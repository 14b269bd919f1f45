package model

import (
	"testing"
	"time"
)

func TestParseMealType(t *testing.T) {
	tests := []struct {
		in      string
		want    MealType
		wantErr bool
	}{
		{in: "", want: Snack},
		{in: "breakfast", want: Breakfast},
		{in: "dinner", want: Dinner},
		{in: "Brunch", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMealType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMealType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMealType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserGoalsWithDefaults(t *testing.T) {
	got := UserGoals{Calories: 1800, Protein: -5}.WithDefaults()
	want := UserGoals{Calories: 1800, Protein: 150, Carbs: 300, Fat: 70, Sugar: 50}
	if got != want {
		t.Errorf("WithDefaults() = %+v, want %+v", got, want)
	}
	if !got.Valid() {
		t.Error("WithDefaults() result should be valid")
	}
	if (UserGoals{}).Valid() {
		t.Error("zero goals should not be valid")
	}
}

func TestIdentityOf(t *testing.T) {
	a := Authenticated{Identity: Identity{ID: "u1"}, Token: "t"}

	if id, ok := IdentityOf(a); !ok || id.ID != "u1" {
		t.Errorf("IdentityOf(authenticated) = %+v, %v", id, ok)
	}
	if _, ok := IdentityOf(Unauthenticated{}); ok {
		t.Error("IdentityOf(unauthenticated) ok = true")
	}
	if _, ok := IdentityOf(Authenticated{}); ok {
		t.Error("IdentityOf(empty identity) ok = true")
	}
}

func TestAuthenticatedExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "no expiry", expiresAt: time.Time{}, want: false},
		{name: "future", expiresAt: now.Add(time.Minute), want: false},
		{name: "exactly now", expiresAt: now, want: true},
		{name: "past", expiresAt: now.Add(-time.Minute), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Authenticated{ExpiresAt: tt.expiresAt}).Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMealTime(t *testing.T) {
	m := Meal{Timestamp: 1000}
	if got := m.Time().UnixMilli(); got != 1000 {
		t.Errorf("Time().UnixMilli() = %d, want 1000", got)
	}
}
