package verification

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("012345"), Hash("012345"))
	assert.NotEqual(t, Hash("012345"), Hash("012346"))
	assert.Len(t, Hash("000000"), 64)
}

func TestIssueThenCheck(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager().WithClock(func() time.Time { return now })

	iss, err := m.Issue()
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), iss.ExpiresAt)

	require.NoError(t, m.Check(&iss.Hash, &iss.ExpiresAt, iss.Code))
	assert.ErrorIs(t, m.Check(&iss.Hash, &iss.ExpiresAt, "999999x"), ErrCodeMismatch)
}

func TestCheckMissing(t *testing.T) {
	m := NewManager()
	exp := time.Now().Add(time.Minute)
	empty := ""

	assert.ErrorIs(t, m.Check(nil, &exp, "123456"), ErrCodeMissing)
	assert.ErrorIs(t, m.Check(&empty, &exp, "123456"), ErrCodeMissing)
	h := Hash("123456")
	assert.ErrorIs(t, m.Check(&h, nil, "123456"), ErrCodeMissing)
}

func TestCheckExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	iss, err := NewManager().WithClock(func() time.Time { return issuedAt }).Issue()
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want error
	}{
		{"just before expiry", issuedAt.Add(CodeTTL - time.Second), nil},
		{"at expiry", issuedAt.Add(CodeTTL), ErrCodeExpired},
		{"after expiry", issuedAt.Add(CodeTTL + time.Minute), ErrCodeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at := tc.at
			m := NewManager().WithClock(func() time.Time { return at })
			err := m.Check(&iss.Hash, &iss.ExpiresAt, iss.Code)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestExpiredTakesPrecedenceOverMismatch(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	h := Hash("111111")
	assert.ErrorIs(t, NewManager().Check(&h, &past, "222222"), ErrCodeExpired)
}
