// Package verification issues and checks single-use email verification codes.
package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	CodeTTL    = 15 * time.Minute
	codeDigits = 6
)

var codeSpace = big.NewInt(1_000_000)

var (
	ErrCodeMissing  = errors.New("verification code missing")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("verification code mismatch")
)

// Issued is a freshly generated code. Code is sent to the user and never stored.
type Issued struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

type Manager struct {
	now func() time.Time
	ttl time.Duration
}

func NewManager() *Manager {
	return &Manager{now: time.Now, ttl: CodeTTL}
}

// WithClock returns a copy of m that reads time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// GenerateCode draws uniformly from [0, 1000000) and zero-pads to six digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Hash returns the hex sha256 digest of code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) Expiry() time.Time {
	return m.now().Add(m.ttl).UTC()
}

func (m *Manager) Issue() (Issued, error) {
	code, err := GenerateCode()
	if err != nil {
		return Issued{}, err
	}
	return Issued{Code: code, Hash: Hash(code), ExpiresAt: m.Expiry()}, nil
}

// Check validates submitted against the stored hash and expiry without mutating anything.
// Expiry is exclusive: a code is rejected at exactly its expiry instant.
func (m *Manager) Check(storedHash *string, expiresAt *time.Time, submitted string) error {
	if storedHash == nil || *storedHash == "" || expiresAt == nil {
		return ErrCodeMissing
	}
	if !m.now().Before(*expiresAt) {
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(Hash(submitted)), []byte(*storedHash)) != 1 {
		return ErrCodeMismatch
	}
	return nil
}
