package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"
)

func TestGenerateAndValidateToken(t *testing.T) {
	a, err := NewAuthenticator("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	token, err := a.GenerateUserToken("user-1")
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("Expected uid user-1, got %s", claims.UserID)
	}
	if claims.Role != "user" {
		t.Errorf("Expected role user, got %s", claims.Role)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	a, _ := NewAuthenticator("secret", time.Hour)
	other, _ := NewAuthenticator("other", time.Hour)

	foreign, _ := other.GenerateUserToken("user-1")
	if _, err := a.ValidateToken(foreign); err == nil {
		t.Error("Token signed with another secret should be rejected")
	}

	expired, _ := NewAuthenticator("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.GenerateUserToken("user-1")
	if _, err := a.ValidateToken(old); err == nil {
		t.Error("Expired token should be rejected")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: "user-1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.ValidateToken(unsigned); err == nil {
		t.Error("Unsigned token should be rejected")
	}

	noUID := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{Role: "user"})
	signed, _ := noUID.SignedString([]byte("secret"))
	if _, err := a.ValidateToken(signed); err == nil {
		t.Error("Token without uid should be rejected")
	}
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	if _, err := NewAuthenticator("", 0); err == nil {
		t.Error("Expected error for empty secret")
	}
	a, err := NewAuthenticator("secret", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.ttl != DefaultTokenTTL {
		t.Errorf("Expected default TTL, got %v", a.ttl)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer ":     "",
		"Basic abc":   "",
		"":            "",
		"Bearer  xyz": "xyz",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	a, _ := NewAuthenticator("secret", time.Hour)
	token, _ := a.GenerateUserToken("user-1")

	e := echo.New()
	handler := a.Middleware(zaptest.NewLogger(t))(func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "user-1"},
		{"missing token", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			if err := handler(e.NewContext(req, rec)); err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}
