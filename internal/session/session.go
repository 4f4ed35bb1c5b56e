package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is what the dashboard models need from the session: the bearer
// credential, and a hook to send the user back to sign in when the service
// rejects it.
type Capability interface {
	Token() string
	Expire()
}

var (
	ErrNoToken        = errors.New("not signed in")
	ErrRoleNotAllowed = errors.New("role not allowed")
)

type Claims struct {
	Name      string
	Role      string
	ExpiresAt time.Time
}

// Token is a Capability backed by a bearer JWT. The signature is not checked
// here; only the service can do that. Claims are read for display and for
// gating the dashboard to the right roles.
type Token struct {
	raw    string
	claims Claims

	mu       sync.Mutex
	expired  bool
	onExpire func()
}

func New(raw string) (*Token, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return nil, ErrNoToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	t := &Token{raw: raw}
	t.claims.Name, _ = mc["name"].(string)
	t.claims.Role = roleFrom(mc)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t.claims.ExpiresAt = exp.Time
	}
	return t, nil
}

func roleFrom(mc jwt.MapClaims) string {
	if role, ok := mc["role"].(string); ok {
		return role
	}
	if roles, ok := mc["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				return s
			}
		}
	}
	return ""
}

func (t *Token) Token() string {
	return t.raw
}

func (t *Token) Claims() Claims {
	return t.claims
}

// OnExpire registers fn to run the first time the session is expired.
func (t *Token) OnExpire(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}

// Expire marks the session as rejected by the service and fires the redirect
// hook once.
func (t *Token) Expire() {
	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return
	}
	t.expired = true
	fn := t.onExpire
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Expired reports whether the service rejected the token or its exp claim has
// passed.
func (t *Token) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired {
		return true
	}
	return !t.claims.ExpiresAt.IsZero() && time.Now().After(t.claims.ExpiresAt)
}

// RequireRole fails unless the token's role is one of allowed (compared
// case-insensitively).
func (t *Token) RequireRole(allowed ...string) error {
	role := strings.ToLower(t.claims.Role)
	if role != "" && slices.ContainsFunc(allowed, func(a string) bool { return strings.ToLower(a) == role }) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrRoleNotAllowed, t.claims.Role)
}

// FirstName is used for the dashboard greeting.
func (t *Token) FirstName() string {
	fields := strings.Fields(t.claims.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Static is a fixed-credential Capability, mostly useful in tests and scripts.
type Static struct {
	Credential string

	mu      sync.Mutex
	expired int
}

func (s *Static) Token() string { return s.Credential }

func (s *Static) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired++
}

// ExpireCount reports how many times the redirect hook fired.
func (s *Static) ExpireCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}
