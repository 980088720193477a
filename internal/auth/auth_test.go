package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("operator", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	subject, err := ValidateToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if subject != "operator" {
		t.Errorf("subject = %q, want operator", subject)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	expired, err := GenerateToken("operator", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	valid, err := GenerateToken("operator", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"expired", expired, testSecret},
		{"wrong secret", valid, "other-secret"},
		{"garbage", "not-a-token", testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token, tt.secret); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateToken("operator", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestMiddleware(t *testing.T) {
	token, err := GenerateToken("operator", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"valid bearer", testSecret, "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", testSecret, "bearer " + token, http.StatusNoContent},
		{"missing header", testSecret, "", http.StatusUnauthorized},
		{"wrong scheme", testSecret, "Basic " + token, http.StatusUnauthorized},
		{"bad token", testSecret, "Bearer nope", http.StatusUnauthorized},
		{"no secret configured", "", "Bearer " + token, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/api/admin/discover", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Middleware(tt.secret)(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && gotSubject != "operator" {
				t.Errorf("subject = %q, want operator", gotSubject)
			}
		})
	}
}
