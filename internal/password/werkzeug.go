package password

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const defaultPBKDF2Iterations = 600000

// Werkzeug verifies "method$salt$hexdigest" hashes written by Python's
// werkzeug.security, which older user documents carry. It cannot hash.
type Werkzeug struct{}

func (Werkzeug) Hash(string) (string, error) {
	return "", fmt.Errorf("werkzeug hashes are verify-only")
}

func (Werkzeug) Verify(password, encoded string) (bool, error) {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return false, ErrMalformedHash
	}
	method, salt, digest := parts[0], parts[1], parts[2]

	want, err := hex.DecodeString(digest)
	if err != nil {
		return false, fmt.Errorf("%w: digest: %v", ErrMalformedHash, err)
	}

	var got []byte
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		got, err = werkzeugPBKDF2(fields[1:], password, salt)
	case "scrypt":
		got, err = werkzeugScrypt(fields[1:], password, salt)
	default:
		return false, ErrUnknownScheme
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func werkzeugPBKDF2(args []string, password, salt string) ([]byte, error) {
	name := "sha256"
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	var newHash func() hash.Hash
	switch name {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return nil, fmt.Errorf("%w: pbkdf2 digest %q", ErrMalformedHash, name)
	}

	iterations := defaultPBKDF2Iterations
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: pbkdf2 iterations %q", ErrMalformedHash, args[1])
		}
		iterations = n
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, newHash().Size(), newHash), nil
}

func werkzeugScrypt(args []string, password, salt string) ([]byte, error) {
	n, r, p := 1<<15, 8, 1
	if len(args) == 3 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil {
			return nil, fmt.Errorf("%w: scrypt n: %v", ErrMalformedHash, err)
		}
		if r, err = strconv.Atoi(args[1]); err != nil {
			return nil, fmt.Errorf("%w: scrypt r: %v", ErrMalformedHash, err)
		}
		if p, err = strconv.Atoi(args[2]); err != nil {
			return nil, fmt.Errorf("%w: scrypt p: %v", ErrMalformedHash, err)
		}
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: scrypt: %v", ErrMalformedHash, err)
	}
	return key, nil
}

func isWerkzeug(encoded string) bool {
	return strings.HasPrefix(encoded, "pbkdf2:") || strings.HasPrefix(encoded, "scrypt:")
}
