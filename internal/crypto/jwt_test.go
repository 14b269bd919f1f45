package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testUserID = "5f0c6a0e-8d0f-4bd4-9a57-6d3c3e0c1a11"

func TestGenerateToken(t *testing.T) {
	before := time.Now()
	token, expiresAt, err := GenerateToken(testUserID, "u@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty string")
	}
	if expiresAt.Before(before.Add(time.Hour)) {
		t.Errorf("GenerateToken() expiresAt = %v, want at least %v", expiresAt, before.Add(time.Hour))
	}
}

func TestValidateTokenValid(t *testing.T) {
	token, _, err := GenerateToken(testUserID, "u@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if claims.UserID() != testUserID {
		t.Errorf("ValidateToken() UserID = %q, want %q", claims.UserID(), testUserID)
	}
	if claims.Email != "u@example.com" {
		t.Errorf("ValidateToken() Email = %q, want %q", claims.Email, "u@example.com")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	secret := "test-secret"
	signed := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("SignedString() unexpected error: %v", err)
		}
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		}
	}

	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}
	noSubject := valid()
	noSubject.Subject = ""
	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	goodToken, _, err := GenerateToken(testUserID, "", "correct-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "garbage", token: "not-a-valid-token", secret: secret},
		{name: "wrong secret", token: goodToken, secret: "wrong-secret"},
		{name: "wrong issuer", token: signed(Claims{RegisteredClaims: wrongIssuer}), secret: secret},
		{name: "wrong audience", token: signed(Claims{RegisteredClaims: wrongAudience}), secret: secret},
		{name: "missing subject", token: signed(Claims{RegisteredClaims: noSubject}), secret: secret},
		{name: "expired", token: signed(Claims{RegisteredClaims: expired}), secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token, tt.secret); err != ErrInvalidToken {
				t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}
