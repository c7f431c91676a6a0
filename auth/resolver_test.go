package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRequest(t *testing.T, headers map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantMode   Mode
		wantSecret string
		wantCode   string
		wantStatus int
	}{
		{
			name:       "api key",
			headers:    map[string]string{"X-API-Key": "pro_abc123"},
			wantMode:   ModeAPIKey,
			wantSecret: "pro_abc123",
		},
		{
			name:       "bearer token",
			headers:    map[string]string{"Authorization": "Bearer tok-1"},
			wantMode:   ModeOAuth,
			wantSecret: "tok-1",
		},
		{
			name:       "bearer scheme is case-insensitive",
			headers:    map[string]string{"Authorization": "bearer tok-2"},
			wantMode:   ModeOAuth,
			wantSecret: "tok-2",
		},
		{
			name: "both modes rejected",
			headers: map[string]string{
				"X-API-Key":     "pro_abc123",
				"Authorization": "Bearer tok-1",
			},
			wantCode:   "bad_request",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no credentials",
			headers:    nil,
			wantCode:   "unauthorized",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer authorization ignored",
			headers:    map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			wantCode:   "unauthorized",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "blank api key is no credential",
			headers:    map[string]string{"X-API-Key": "   "},
			wantCode:   "unauthorized",
			wantStatus: http.StatusUnauthorized,
		},
	}

	r := NewResolver("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, ferr := r.Resolve(newRequest(t, tt.headers))

			if tt.wantCode != "" {
				if ferr == nil {
					t.Fatalf("Resolve() error = nil, want code %q", tt.wantCode)
				}
				if ferr.Code != tt.wantCode {
					t.Errorf("Code = %q, want %q", ferr.Code, tt.wantCode)
				}
				if ferr.Status != tt.wantStatus {
					t.Errorf("Status = %d, want %d", ferr.Status, tt.wantStatus)
				}
				return
			}

			if ferr != nil {
				t.Fatalf("Resolve() error = %v", ferr)
			}
			if cred.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", cred.Mode, tt.wantMode)
			}
			if cred.Secret != tt.wantSecret {
				t.Errorf("Secret = %q, want %q", cred.Secret, tt.wantSecret)
			}
		})
	}
}

func TestResolveCustomHeader(t *testing.T) {
	r := NewResolver("X-Partner-Key")

	cred, ferr := r.Resolve(newRequest(t, map[string]string{"X-Partner-Key": "key-1"}))
	if ferr != nil {
		t.Fatalf("Resolve() error = %v", ferr)
	}
	if cred.Mode != ModeAPIKey || cred.Secret != "key-1" {
		t.Errorf("cred = %+v, want api_key key-1", cred)
	}

	// The default header name is not consulted once a custom one is set.
	if _, ferr := r.Resolve(newRequest(t, map[string]string{"X-API-Key": "key-1"})); ferr == nil {
		t.Error("Resolve() with default header = nil error, want unauthorized")
	}
}

func TestResolveSilent(t *testing.T) {
	r := NewResolver("")

	if cred, ok := r.ResolveSilent(newRequest(t, map[string]string{"X-API-Key": "k"})); !ok || cred.Mode != ModeAPIKey {
		t.Errorf("ResolveSilent() = %+v, %v; want api_key credential", cred, ok)
	}

	if cred, ok := r.ResolveSilent(newRequest(t, nil)); ok || cred != nil {
		t.Errorf("ResolveSilent() with no credentials = %+v, %v; want nil, false", cred, ok)
	}

	both := map[string]string{"X-API-Key": "k", "Authorization": "Bearer t"}
	if _, ok := r.ResolveSilent(newRequest(t, both)); ok {
		t.Error("ResolveSilent() with both modes = true, want false")
	}
}
