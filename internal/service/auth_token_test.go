package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/service"
	"github.com/shopspring/decimal"
)

func tokenTestCfg() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "token-test-access-secret-0123456789",
			RefreshSecret: "token-test-refresh-secret-0123456789",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
		},
	}
}

// signTestToken builds an HS256 token the way generateTokenPair does, so the
// parser can be tested without a database.
func signTestToken(t *testing.T, secret, tokenType string, userID uuid.UUID, ttl time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := service.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      string(domain.RoleUser),
		TokenType: tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

// TestParseAccessToken_Valid verifies a well-formed access token round-trips
// through the parser with its claims intact.
func TestParseAccessToken_Valid(t *testing.T) {
	cfg := tokenTestCfg()
	authSvc := service.NewAuthService(nil, nil, nil, cfg)
	userID := uuid.New()

	tok := signTestToken(t, cfg.JWT.AccessSecret, "access", userID, cfg.JWT.AccessTTL)
	claims, err := authSvc.ParseAccessToken(tok)
	if err != nil {
		t.Fatalf("ParseAccessToken() = %v, want nil", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, userID)
	}
	if claims.Role != string(domain.RoleUser) {
		t.Errorf("role = %q, want user", claims.Role)
	}
}

// TestParseAccessToken_RejectsRefreshType ensures a refresh token cannot be
// used on access-token endpoints even when correctly signed.
func TestParseAccessToken_RejectsRefreshType(t *testing.T) {
	cfg := tokenTestCfg()
	authSvc := service.NewAuthService(nil, nil, nil, cfg)

	tok := signTestToken(t, cfg.JWT.AccessSecret, "refresh", uuid.New(), cfg.JWT.AccessTTL)
	if _, err := authSvc.ParseAccessToken(tok); err == nil {
		t.Error("refresh-typed token accepted as access token")
	}
}

// TestParseAccessToken_RejectsWrongSecret ensures tokens signed with the
// refresh secret fail access validation (the secrets are split).
func TestParseAccessToken_RejectsWrongSecret(t *testing.T) {
	cfg := tokenTestCfg()
	authSvc := service.NewAuthService(nil, nil, nil, cfg)

	tok := signTestToken(t, cfg.JWT.RefreshSecret, "access", uuid.New(), cfg.JWT.AccessTTL)
	if _, err := authSvc.ParseAccessToken(tok); err == nil {
		t.Error("token signed with the refresh secret accepted as access token")
	}
}

// TestAuthResponseCarriesPublicProfile pins the response assembly: the public
// profile is embedded by value and never exposes the password hash.
func TestAuthResponseCarriesPublicProfile(t *testing.T) {
	user := &domain.User{
		ID:           uuid.New(),
		Phone:        "9876543210",
		Name:         "Ravi Kumar",
		PasswordHash: "$2a$12$secret",
		Role:         domain.RoleUser,
		Balance:      decimal.NewFromInt(500),
		IsActive:     true,
	}

	resp := service.AuthResponse{
		User:         user.ToPublicProfile(),
		AccessToken:  "a",
		RefreshToken: "r",
	}

	if resp.User.ID != user.ID || resp.User.Phone != user.Phone {
		t.Errorf("profile fields not carried over: %+v", resp.User)
	}
	if !resp.User.Balance.Equal(user.Balance) {
		t.Errorf("profile balance = %s, want %s", resp.User.Balance, user.Balance)
	}
}
