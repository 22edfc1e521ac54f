package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"smart_environment/internal/service"
)

func TestAuthHandlers_SignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		signUpErr  error
		wantCode   int
		wantCalled bool
	}{
		{name: "created", body: `{"username":"ops","password":"s3cr3t"}`, wantCode: http.StatusCreated, wantCalled: true},
		{name: "duplicate operator", body: `{"username":"ops","password":"s3cr3t"}`, signUpErr: service.ErrOperatorExists, wantCode: http.StatusConflict, wantCalled: true},
		{name: "blank username", body: `{"username":"  ","password":"s3cr3t"}`, signUpErr: service.ErrInvalidUsername, wantCode: http.StatusBadRequest, wantCalled: true},
		{name: "repository failure", body: `{"username":"ops","password":"s3cr3t"}`, signUpErr: errors.New("disk full"), wantCode: http.StatusInternalServerError, wantCalled: true},
		{name: "missing password", body: `{"username":"ops"}`, wantCode: http.StatusBadRequest},
		{name: "password past bcrypt limit", body: `{"username":"ops","password":"` + strings.Repeat("é", 40) + `"}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 42, signUpErr: tt.signUpErr}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := do(r, http.MethodPost, "/auth/sign-up", "", []byte(tt.body))
			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if called := auth.lastSignUpUsername != ""; called != tt.wantCalled {
				t.Fatalf("SignUp called=%v, want %v", called, tt.wantCalled)
			}
			if tt.wantCode != http.StatusCreated {
				return
			}
			var m map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if int(m["id"].(float64)) != 42 || m["username"] != "ops" {
				t.Fatalf("unexpected body %v", m)
			}
		})
	}
}

func TestAuthHandlers_SignIn(t *testing.T) {
	tests := []struct {
		name     string
		genErr   error
		wantCode int
	}{
		{name: "token issued", wantCode: http.StatusOK},
		{name: "unknown operator", genErr: service.ErrUserNotFound, wantCode: http.StatusUnauthorized},
		{name: "wrong password", genErr: service.ErrInvalidPassword, wantCode: http.StatusUnauthorized},
		{name: "no signing key", genErr: service.ErrNoSigningKey, wantCode: http.StatusServiceUnavailable},
		{name: "repository failure", genErr: errors.New("query failed"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuth{genTokenToken: "tok123", genTokenErr: tt.genErr, ttl: 15 * time.Minute}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := do(r, http.MethodPost, "/auth/sign-in", "", []byte(`{"username":"ops","password":"s3cr3t"}`))
			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}
			var resp SignInResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Token != "tok123" || resp.TokenType != "Bearer" || resp.ExpiresIn != 900 {
				t.Fatalf("unexpected sign-in response %+v", resp)
			}
		})
	}
}

func TestAuthHandlers_SignInBadBody(t *testing.T) {
	auth := &mockAuth{genTokenToken: "tok123"}
	r := newTestRouter(&service.Service{Authorization: auth})

	w := do(r, http.MethodPost, "/auth/sign-in", "", []byte(`{"username":1}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}
	if auth.lastGenUsername != "" {
		t.Fatal("GenerateToken must not be called for a bad body")
	}
}

// An operator token obtained from sign-in unlocks the control routes; they
// stay closed without it.
func TestAuthHandlers_TokenGatesOperatorControls(t *testing.T) {
	auth := &mockAuth{genTokenToken: "tok123", parseID: 7, ttl: time.Hour}
	poll := &mockPolling{}
	cache := &mockOfflineCache{name: "smart-env-v2"}
	r := newTestRouter(&service.Service{Authorization: auth, Polling: poll, OfflineCache: cache})

	for _, target := range []string{"/api/v1/polling/start", "/api/v1/cache/install"} {
		if w := do(r, http.MethodPost, target, "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: status=%d, want 401", target, w.Code)
		}
		if w := do(r, http.MethodPost, target, "forged", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s with forged token: status=%d, want 401", target, w.Code)
		}
	}
	if poll.startCalled != 0 || cache.installs != 0 {
		t.Fatalf("controls reached without a valid token: start=%d install=%d", poll.startCalled, cache.installs)
	}

	w := do(r, http.MethodPost, "/auth/sign-in", "", []byte(`{"username":"ops","password":"s3cr3t"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	var resp SignInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if w := do(r, http.MethodPost, "/api/v1/polling/start", resp.Token, []byte(`{"interval":"2s"}`)); w.Code != http.StatusOK {
		t.Fatalf("start with token: status=%d, body=%s", w.Code, w.Body.String())
	}
	if poll.startCalled != 1 || poll.lastInterval != 2*time.Second {
		t.Fatalf("unexpected start calls=%d interval=%v", poll.startCalled, poll.lastInterval)
	}
	if w := do(r, http.MethodPost, "/api/v1/cache/install", resp.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("install with token: status=%d, body=%s", w.Code, w.Body.String())
	}
	if cache.installs != 1 {
		t.Fatalf("expected one install, got %d", cache.installs)
	}

	w = do(r, http.MethodGet, "/api/v1/operator", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("operator status=%d", w.Code)
	}
	var who map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &who); err != nil || who["operator_id"] != 7 {
		t.Fatalf("unexpected operator body %s (err=%v)", w.Body.String(), err)
	}
}
