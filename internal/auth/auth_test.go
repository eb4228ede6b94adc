// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testSecret = "0123456789abcdef0123456789abcdef"

func testManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	_, err := NewJWTManager(&config.SecurityConfig{JWTSecret: "tooshort", SessionTimeout: time.Hour})
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(t, time.Hour)

	token, expiresAt, err := m.GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiry too soon: %v", expiresAt)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %q", claims.Username)
	}
}

func TestValidateToken_Failures(t *testing.T) {
	m := testManager(t, time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		if _, err := m.ValidateToken("not.a.token"); err == nil {
			t.Error("expected error for malformed token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTManager(&config.SecurityConfig{
			JWTSecret:      "ffffffffffffffffffffffffffffffff",
			SessionTimeout: time.Hour,
		})
		if err != nil {
			t.Fatal(err)
		}
		token, _, _ := other.GenerateToken(1, "mallory")
		if _, err := m.ValidateToken(token); err == nil {
			t.Error("expected signature mismatch")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := testManager(t, -time.Minute)
		token, _, _ := expired.GenerateToken(1, "alice")
		if _, err := m.ValidateToken(token); err == nil {
			t.Error("expected expiry rejection")
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("password stored in plaintext")
	}

	if err := CheckPassword(hash, "hunter2hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc123")
		token, err := TokenFromRequest(r)
		if err != nil || token != "abc123" {
			t.Errorf("got (%q, %v)", token, err)
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: "cookievalue"})
		token, err := TokenFromRequest(r)
		if err != nil || token != "cookievalue" {
			t.Errorf("got (%q, %v)", token, err)
		}
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer fromheader")
		r.AddCookie(&http.Cookie{Name: "token", Value: "fromcookie"})
		token, _ := TokenFromRequest(r)
		if token != "fromheader" {
			t.Errorf("expected header token, got %q", token)
		}
	})

	t.Run("malformed scheme", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc123")
		if _, err := TokenFromRequest(r); err == nil {
			t.Error("expected error for non-bearer scheme")
		}
	})

	t.Run("nothing present", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := TokenFromRequest(r); err == nil {
			t.Error("expected error for missing token")
		}
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	m := testManager(t, time.Hour)
	mw := NewMiddleware(m)

	var gotClaims *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := mw.Authenticate(next)

	t.Run("valid token passes with claims", func(t *testing.T) {
		token, _, _ := m.GenerateToken(7, "bob")
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotClaims == nil || gotClaims.UserID != 7 || gotClaims.Username != "bob" {
			t.Errorf("claims not propagated: %+v", gotClaims)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		gotClaims = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if gotClaims != nil {
			t.Error("handler ran without authentication")
		}
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
