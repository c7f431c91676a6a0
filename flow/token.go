package flow

import "time"

// TokenRecord is the client-facing shape of an upstream token response.
// The server retains no copy once the result holding it is consumed; the
// browser owns the record after delivery.
type TokenRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// ExpiresIn is the upstream expires_in value in seconds; 0 when absent
	ExpiresIn int64 `json:"expiresIn,omitempty"`

	// ObtainedAt is when the exchange completed
	ObtainedAt time.Time `json:"obtainedAt"`

	// ExpiresAt is ObtainedAt plus ExpiresIn. Nil when the upstream omitted
	// expires_in; callers must treat nil as "unknown" and re-validate before
	// relying on the token.
	ExpiresAt *time.Time `json:"expiresAt"`
}

// newTokenRecord builds a TokenRecord from raw token endpoint fields,
// computing ExpiresAt when expires_in is present.
func newTokenRecord(accessToken, refreshToken, tokenType, scope string, expiresIn int64, obtainedAt time.Time) *TokenRecord {
	rec := &TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		Scope:        scope,
		ExpiresIn:    expiresIn,
		ObtainedAt:   obtainedAt,
	}
	if expiresIn > 0 {
		exp := obtainedAt.Add(time.Duration(expiresIn) * time.Second)
		rec.ExpiresAt = &exp
	}
	return rec
}
