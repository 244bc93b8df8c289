package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign("user-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
}

func TestVerifyRejections(t *testing.T) {
	v := NewVerifier("test-secret")
	other := NewVerifier("other-secret")

	expired, _ := v.Sign("user-1", "", -time.Minute)
	foreign, _ := other.Sign("user-1", "", time.Hour)

	tests := []struct {
		name   string
		header string
		err    error
	}{
		{"missing header", "", ErrMissingToken},
		{"not bearer", "Basic abc", ErrInvalidToken},
		{"garbage token", "Bearer not.a.jwt", ErrInvalidToken},
		{"expired token", "Bearer " + expired, ErrInvalidToken},
		{"wrong secret", "Bearer " + foreign, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.FromAuthorizationHeader(tt.header)
			if err != tt.err {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("test-secret")

	r := gin.New()
	r.Use(Middleware(v))
	r.GET("/whoami", func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.String(http.StatusOK, userID)
	})

	token, _ := v.Sign("user-42", "", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "user-42" {
		t.Errorf("body = %q, want user-42", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
}
