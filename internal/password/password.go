// Package password hashes and verifies user passwords.
//
// New hashes always use the configured scheme. Verification recognises every
// supported encoding, so accounts keep working after the scheme changes.
package password

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownScheme is returned for a hash whose encoding is not recognised.
	ErrUnknownScheme = errors.New("unknown password hash scheme")
	// ErrMalformedHash is returned when a recognised encoding cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher produces and checks salted one-way password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Scheme names accepted by New.
const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
)

// Options tunes New.
type Options struct {
	Scheme     string
	BcryptCost int
}

// New returns a Hasher that hashes with the requested scheme and verifies any supported encoding.
func New(opts Options) (Hasher, error) {
	var primary Hasher
	switch strings.ToLower(strings.TrimSpace(opts.Scheme)) {
	case "", SchemeBcrypt:
		primary = NewBcrypt(opts.BcryptCost)
	case SchemeArgon2id:
		primary = NewArgon2()
	default:
		return nil, fmt.Errorf("unsupported password scheme %q", opts.Scheme)
	}
	return &dispatcher{primary: primary}, nil
}

type dispatcher struct {
	primary Hasher
}

func (d *dispatcher) Hash(password string) (string, error) {
	return d.primary.Hash(password)
}

func (d *dispatcher) Verify(password, encoded string) (bool, error) {
	switch {
	case isBcrypt(encoded):
		return NewBcrypt(0).Verify(password, encoded)
	case strings.HasPrefix(encoded, "$argon2id$"):
		return NewArgon2().Verify(password, encoded)
	case isWerkzeug(encoded):
		return Werkzeug{}.Verify(password, encoded)
	}
	return false, ErrUnknownScheme
}
