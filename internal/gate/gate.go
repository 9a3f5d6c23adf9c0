// Package gate implements the DeletionGate: the last safety latch an
// Executor run must clear before anything is moved to trash or removed
// permanently.
//
// Ported line-for-line in control flow from original_source/deletion_gate.py.
// Two token paths exist: an internally issued 6-hex-char token (short,
// human-typable, one-shot, TTL-bound) and, only when no internal token is
// currently active, a fallback that accepts the plan's own 32-hex UUID
// token. The one-shot consumption in Assert applies ONLY to internally
// issued tokens — accepting a plan's UUID token never clears anything,
// since nothing was issued to clear.
package gate

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

var uuidHexRE = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// Config mirrors deletion_gate.py's DeletionGateConfig defaults.
type Config struct {
	Enabled                bool
	RequireValidationMode  bool
	RequireToken           bool
	TokenTTLSeconds        int
	AllowPlanUUIDToken     bool
}

// DefaultConfig returns the original's defaults: enabled, token required,
// 900s TTL, validation mode NOT required (the UI shouldn't force it for
// safe operations), and plan UUID tokens accepted as a fallback.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		RequireValidationMode: false,
		RequireToken:          true,
		TokenTTLSeconds:       900,
		AllowPlanUUIDToken:    true,
	}
}

// ErrBlocked is returned (wrapped with a reason) when Assert rejects a
// deletion attempt.
var ErrBlocked = errors.New("deletion blocked")

// Gate is the central deletion safety lattice. Safe for concurrent use.
type Gate struct {
	mu            sync.Mutex
	cfg           Config
	activeToken   string
	tokenExpires  time.Time
	tokenReason   string
}

// New creates a Gate with cfg.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// IssueToken generates and activates a new 6-hex-char uppercase token,
// valid for max(10, cfg.TokenTTLSeconds) seconds.
func (g *Gate) IssueToken(reason string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var raw [3]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	token := strings.ToUpper(hex.EncodeToString(raw[:]))

	ttl := g.cfg.TokenTTLSeconds
	if ttl < 10 {
		ttl = 10
	}
	g.activeToken = token
	g.tokenExpires = time.Now().Add(time.Duration(ttl) * time.Second)
	g.tokenReason = strings.TrimSpace(reason)
	return token, nil
}

// TokenStatus reports the current internal token's state, for a status
// command or UI indicator.
type TokenStatus struct {
	HasToken  bool
	Valid     bool
	ExpiresIn time.Duration
	Reason    string
}

// Status returns the current token status.
func (g *Gate) Status() TokenStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	valid := g.activeToken != "" && now.Before(g.tokenExpires)
	st := TokenStatus{HasToken: g.activeToken != "", Valid: valid, Reason: g.tokenReason}
	if valid {
		st.ExpiresIn = g.tokenExpires.Sub(now)
	}
	return st
}

// verifyLocked checks token under an already-held lock.
func (g *Gate) verifyLocked(token string) bool {
	if token == "" {
		return false
	}
	t := strings.TrimSpace(token)
	now := time.Now()

	if g.activeToken != "" {
		if now.After(g.tokenExpires) || now.Equal(g.tokenExpires) {
			return false
		}
		return strings.ToUpper(t) == g.activeToken
	}

	if g.cfg.AllowPlanUUIDToken && uuidHexRE.MatchString(t) {
		return true
	}
	return false
}

// VerifyToken reports whether token currently authorizes a deletion,
// without consuming it.
func (g *Gate) VerifyToken(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyLocked(token)
}

// Seed restores a previously issued token into a freshly constructed Gate.
// The CLI is re-invoked as a new process for every command, so the token
// IssueToken activates in memory would otherwise vanish the moment that
// process exits; the CLI layer persists (token, expires, reason) to a
// sidecar file and replays it here on the next invocation instead of
// reimplementing verification logic at the call site.
func (g *Gate) Seed(token string, expires time.Time, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeToken = strings.ToUpper(strings.TrimSpace(token))
	g.tokenExpires = expires
	g.tokenReason = reason
}

// ClearToken deactivates any internally issued token.
func (g *Gate) ClearToken() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeToken = ""
	g.tokenExpires = time.Time{}
	g.tokenReason = ""
}

// Assert verifies a deletion attempt is authorized, returning a wrapped
// ErrBlocked on rejection. On success, an internally issued token (if one
// was active) is consumed — a plan's own UUID token is never consumed,
// since nothing was issued to clear.
func (g *Gate) Assert(validationMode bool, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cfg.Enabled {
		return nil
	}
	if g.cfg.RequireValidationMode && !validationMode {
		return fmt.Errorf("%w: validation mode is OFF", ErrBlocked)
	}
	if g.cfg.RequireToken && !g.verifyLocked(token) {
		return fmt.Errorf("%w: invalid or expired token", ErrBlocked)
	}
	if g.cfg.RequireToken && g.activeToken != "" {
		g.activeToken = ""
		g.tokenExpires = time.Time{}
		g.tokenReason = ""
	}
	return nil
}
