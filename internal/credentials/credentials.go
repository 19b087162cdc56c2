// Package credentials keeps the pool of download credentials (cookie jars
// and similar secrets) and rotates through them, permanently retiring any
// credential the remote side rejects.
package credentials

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// ClassCookies is the class used by the credential download strategy.
const ClassCookies = "cookies"

// DefaultClass is assigned to credentials stored without a class.
const DefaultClass = "default"

// State of a credential record.
type State string

// Credential states
const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
)

// ErrNotFound is returned by repositories for unknown ids.
var ErrNotFound = errors.New("credential not found")

// Record is one credential.
type Record struct {
	ID      string `json:"id"`
	Class   string `json:"class"`
	Payload []byte `json:"-"`
	// Source locates the backing storage, a file path or a row id.
	Source string `json:"source"`
	State  State  `json:"state"`
}

// Repository is a backing store for credentials.
type Repository interface {
	// List returns the active credentials.
	List(ctx context.Context) ([]Record, error)
	// Revoke permanently retires a credential. Revoking an unknown or
	// already revoked id must not fail.
	Revoke(ctx context.Context, id string) error
}

// Fingerprint returns the id derived from a credential payload. Identical
// payloads share an id.
func Fingerprint(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}
