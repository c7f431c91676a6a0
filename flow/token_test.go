package flow

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewTokenRecordExpiry(t *testing.T) {
	obtained := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expires_in present", func(t *testing.T) {
		rec := newTokenRecord("at", "rt", "Bearer", "read", 3600, obtained)

		if rec.ExpiresAt == nil {
			t.Fatal("ExpiresAt = nil, want computed expiry")
		}
		want := obtained.Add(time.Hour)
		if !rec.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
		}
		if !rec.ObtainedAt.Equal(obtained) {
			t.Errorf("ObtainedAt = %v, want %v", rec.ObtainedAt, obtained)
		}
	})

	t.Run("expires_in absent", func(t *testing.T) {
		rec := newTokenRecord("at", "", "Bearer", "", 0, obtained)

		if rec.ExpiresAt != nil {
			t.Errorf("ExpiresAt = %v, want nil", rec.ExpiresAt)
		}
	})
}

func TestTokenRecordJSONShape(t *testing.T) {
	obtained := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := newTokenRecord("at-1", "rt-1", "Bearer", "read", 7200, obtained)

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, key := range []string{`"accessToken"`, `"refreshToken"`, `"tokenType"`, `"scope"`, `"expiresIn"`, `"obtainedAt"`, `"expiresAt"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("marshaled record missing %s: %s", key, data)
		}
	}
	if strings.Contains(string(data), "access_token") {
		t.Errorf("marshaled record uses snake_case keys: %s", data)
	}

	t.Run("nil expiry serializes as null", func(t *testing.T) {
		rec := newTokenRecord("at-2", "", "Bearer", "", 0, obtained)
		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !strings.Contains(string(data), `"expiresAt":null`) {
			t.Errorf("marshaled record should carry expiresAt:null, got %s", data)
		}
	})
}
