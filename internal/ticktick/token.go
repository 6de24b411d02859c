package ticktick

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credential is the persisted bearer token plus expiry.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	Scope       string    `json:"scope"`
}

// Valid reports whether the credential can still be used. Expiry is strict:
// a token whose expiry equals the current instant is already expired.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// loadCredential reads the credential file. A missing file, a parse
// failure, or an expired token all mean "no credential"; expired files are
// removed so the next authorization starts clean.
func loadCredential(path string, now time.Time) *Credential {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil
	}
	if !cred.Valid(now) {
		os.Remove(path)
		return nil
	}
	return &cred
}

// saveCredential persists the credential as indented JSON.
func saveCredential(path string, cred *Credential) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
