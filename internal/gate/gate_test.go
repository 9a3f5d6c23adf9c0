package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenIsSixHexUppercase(t *testing.T) {
	g := New(DefaultConfig())
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	assert.Len(t, token, 6)
	assert.Equal(t, token, stringsToUpper(token))
}

func stringsToUpper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 32
		}
	}
	return string(out)
}

func TestAssertAcceptsIssuedToken(t *testing.T) {
	g := New(DefaultConfig())
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	assert.NoError(t, g.Assert(false, token))
}

func TestAssertRejectsWrongToken(t *testing.T) {
	g := New(DefaultConfig())
	_, err := g.IssueToken("test")
	require.NoError(t, err)

	err = g.Assert(false, "WRONG1")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestAssertConsumesTokenOnSuccess(t *testing.T) {
	g := New(DefaultConfig())
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	require.NoError(t, g.Assert(false, token))
	assert.Error(t, g.Assert(false, token), "a one-shot token must not authorize twice")
}

func TestAssertFallsBackToPlanUUIDTokenWhenNoneActive(t *testing.T) {
	g := New(DefaultConfig())
	uuidToken := "0123456789abcdef0123456789abcdef"[:32]

	assert.NoError(t, g.Assert(false, uuidToken))
}

func TestAssertRejectsExpiredToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenTTLSeconds = 10
	g := New(cfg)
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	g.Seed(token, time.Now().Add(-time.Second), "test")
	assert.Error(t, g.Assert(false, token))
}

func TestAssertDisabledGateAlwaysPasses(t *testing.T) {
	g := New(Config{Enabled: false})
	assert.NoError(t, g.Assert(false, ""))
}

func TestAssertRequiresValidationModeWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequireValidationMode = true
	g := New(cfg)
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	assert.Error(t, g.Assert(false, token))
	g2 := New(cfg)
	token2, err := g2.IssueToken("test")
	require.NoError(t, err)
	assert.NoError(t, g2.Assert(true, token2))
}

func TestStatusReportsActiveToken(t *testing.T) {
	g := New(DefaultConfig())
	_, err := g.IssueToken("cleanup run")
	require.NoError(t, err)

	st := g.Status()
	assert.True(t, st.HasToken)
	assert.True(t, st.Valid)
	assert.Equal(t, "cleanup run", st.Reason)
}

func TestClearTokenInvalidatesIt(t *testing.T) {
	g := New(DefaultConfig())
	token, err := g.IssueToken("test")
	require.NoError(t, err)

	g.ClearToken()
	assert.False(t, g.VerifyToken(token))
}

func TestSeedRestoresTokenAcrossInstances(t *testing.T) {
	g := New(DefaultConfig())
	expires := time.Now().Add(time.Hour)
	g.Seed("abc123", expires, "restored")

	assert.True(t, g.VerifyToken("ABC123"))
}
