package session

import (
	"context"
	"encoding/json"
	"time"
)

// Cache keys.
const (
	KeyAuthMethod = "auth-method"
	KeyToken      = "token"
	KeyUsername   = "username"
)

// CachedCredential is the serialized form of a remembered credential.
// Token is the already-encoded token, never the raw secret.
type CachedCredential struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	Version  int    `json:"version"`
}

// CurrentSerializationVersion is the current version of the serialization format.
const CurrentSerializationVersion = 1

// SaveCredential stores c under KeyToken until expiresAt.
func SaveCredential(ctx context.Context, s Store, c CachedCredential, expiresAt time.Time) error {
	c.Version = CurrentSerializationVersion
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.Save(ctx, KeyToken, data, expiresAt)
}

// LoadCredential returns the remembered credential, or nil when none is
// cached or the cached value cannot be decoded.
func LoadCredential(ctx context.Context, s Store) (*CachedCredential, error) {
	data, err := s.Load(ctx, KeyToken)
	if err != nil || data == nil {
		return nil, err
	}
	var c CachedCredential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil
	}
	return &c, nil
}

// ForgetCredential removes any remembered credential.
func ForgetCredential(ctx context.Context, s Store) error {
	return s.Delete(ctx, KeyToken)
}
