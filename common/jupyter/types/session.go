package types

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	JupyterSignatureScheme = "hmac-sha256"

	SessionDefaultUsername = "kernel"
)

// Session holds the identity and signing key shared by every socket of a kernel.
// It is immutable once created.
type Session struct {
	ID       string
	Username string
	key      []byte
}

// NewSession creates a session with a fresh id. An empty key disables signing.
func NewSession(key string) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Username: SessionDefaultUsername,
		key:      []byte(key),
	}
}

// NewSessionWithScheme is NewSession for a connection file that names its signature scheme.
func NewSessionWithScheme(key string, scheme string) (*Session, error) {
	if key != "" && scheme != "" && scheme != JupyterSignatureScheme {
		return nil, errors.Wrapf(ErrUnsupportedSignatureScheme, "scheme %q", scheme)
	}
	return NewSession(key), nil
}

// Signed reports whether messages are signed in this session.
func (s *Session) Signed() bool {
	return len(s.key) > 0
}

// Sign returns the hex HMAC-SHA256 of the given parts (header, parent header, metadata, content).
func (s *Session) Sign(parts [][]byte) string {
	if !s.Signed() {
		return ""
	}
	return hex.EncodeToString(s.mac(parts))
}

// Verify checks the hex signature of the given parts. It always succeeds for an unsigned session.
func (s *Session) Verify(parts [][]byte, signature []byte) error {
	if !s.Signed() {
		return nil
	}

	decoded := make([]byte, hex.DecodedLen(len(signature)))
	if _, err := hex.Decode(decoded, signature); err != nil {
		return errors.Wrapf(ErrInvalidHmac, "%q: %v", signature, err)
	}

	if !hmac.Equal(s.mac(parts), decoded) {
		return errors.Wrapf(ErrBadSignature, "%q", signature)
	}
	return nil
}

func (s *Session) mac(parts [][]byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	for _, part := range parts {
		mac.Write(part)
	}
	return mac.Sum(nil)
}
