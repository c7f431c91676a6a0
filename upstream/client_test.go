package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aeroscan/aeroscan/auth"
)

// recordedRequest captures the auth headers of one upstream call.
type recordedRequest struct {
	partnerAuth string
	standard    string
}

func TestBearerFallbackChain(t *testing.T) {
	var calls []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recordedRequest{
			partnerAuth: r.Header.Get("Partner-Authorization"),
			standard:    r.Header.Get("Authorization"),
		})

		// Reject the first two shapes, accept the third.
		if len(calls) < 3 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok-1"}

	resp, err := c.Get(context.Background(), "/search", nil, cred)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if len(calls) != 3 {
		t.Fatalf("upstream saw %d calls, want 3", len(calls))
	}
	if calls[0].partnerAuth != "tok-1" {
		t.Errorf("call 1 Partner-Authorization = %q, want raw token", calls[0].partnerAuth)
	}
	if calls[1].partnerAuth != "Bearer tok-1" {
		t.Errorf("call 2 Partner-Authorization = %q, want Bearer prefix", calls[1].partnerAuth)
	}
	if calls[2].standard != "Bearer tok-1" {
		t.Errorf("call 3 Authorization = %q, want Bearer prefix", calls[2].standard)
	}
}

func TestFallbackRecorderSeesEachAdvance(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var rejected []string
	c := New(srv.URL, WithFallbackRecorder(func(_ context.Context, strategy string) {
		rejected = append(rejected, strategy)
	}))
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	resp, err := c.Get(context.Background(), "/search", nil, cred)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if calls != 3 {
		t.Fatalf("upstream saw %d calls, want 3", calls)
	}

	// The recorder fires once per rejected strategy that had a successor;
	// the final rejection ends the chain and is not a fallback.
	want := []string{"partner-raw", "partner-bearer"}
	if len(rejected) != len(want) {
		t.Fatalf("recorder saw %d fallbacks (%v), want %d", len(rejected), rejected, len(want))
	}
	for i, name := range want {
		if rejected[i] != name {
			t.Errorf("fallback %d = %q, want %q", i, rejected[i], name)
		}
	}
}

func TestFallbackRecorderQuietOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var fallbacks int
	c := New(srv.URL, WithFallbackRecorder(func(context.Context, string) {
		fallbacks++
	}))
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	if _, err := c.Get(context.Background(), "/search", nil, cred); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fallbacks != 0 {
		t.Errorf("recorder saw %d fallbacks, want 0", fallbacks)
	}
}

func TestBearerFallbackStopsOnSuccess(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	if _, err := c.Get(context.Background(), "/search", nil, cred); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream saw %d calls, want 1", calls)
	}
}

func TestBearerFallbackStopsOnNonAuthStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"missing origin"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	resp, err := c.Get(context.Background(), "/search", nil, cred)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// 400 is not an auth rejection: no further shapes are tried and the
	// response passes through.
	if calls != 1 {
		t.Errorf("upstream saw %d calls, want 1", calls)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestBearerFallbackExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	resp, err := c.Get(context.Background(), "/search", nil, cred)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("upstream saw %d calls, want all 3 strategies", calls)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want last rejection %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestAPIKeyNoFallback(t *testing.T) {
	var calls []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recordedRequest{
			partnerAuth: r.Header.Get("Partner-Authorization"),
			standard:    r.Header.Get("Authorization"),
		})
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred := &auth.Credential{Mode: auth.ModeAPIKey, Secret: "pro_key"}

	resp, err := c.Get(context.Background(), "/search", nil, cred)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("upstream saw %d calls, want 1 (no fallback for API keys)", len(calls))
	}
	if calls[0].partnerAuth != "pro_key" {
		t.Errorf("Partner-Authorization = %q, want raw key", calls[0].partnerAuth)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestQueryForwarding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("origin_airport") != "JFK" || q.Get("destination_airport") != "LHR" {
			t.Errorf("query = %v, want forwarded params", q)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	query := url.Values{"origin_airport": {"JFK"}, "destination_airport": {"LHR"}}
	cred := &auth.Credential{Mode: auth.ModeAPIKey, Secret: "k"}

	if _, err := c.Get(context.Background(), "/search", query, cred); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestCheckCredential(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "accepted", status: http.StatusOK, want: true},
		{name: "missing params still accepted", status: http.StatusBadRequest, want: true},
		{name: "unauthorized", status: http.StatusUnauthorized, want: false},
		{name: "forbidden", status: http.StatusForbidden, want: false},
		{name: "server error counted as accepted", status: http.StatusInternalServerError, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/availability" {
					t.Errorf("probe path = %q, want /availability", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := New(srv.URL)
			cred := &auth.Credential{Mode: auth.ModeAPIKey, Secret: "k"}

			got, err := c.CheckCredential(context.Background(), cred)
			if err != nil {
				t.Fatalf("CheckCredential() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckCredential() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomStrategies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom-Auth"); got != "token tok" {
			t.Errorf("X-Custom-Auth = %q, want %q", got, "token tok")
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithBearerStrategies([]HeaderStrategy{
		{Name: "custom", Header: "X-Custom-Auth", Prefix: "token "},
	}))
	cred := &auth.Credential{Mode: auth.ModeOAuth, Secret: "tok"}

	if _, err := c.Get(context.Background(), "/search", nil, cred); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}
