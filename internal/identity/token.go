package identity

import (
	"context"
	"sync"
	"time"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims: the registered set plus the user's
// email. The user id travels in the standard Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// MintToken signs a session token for the given identity. Used by tests and
// local development; production tokens come from the external sign-in flow.
func MintToken(id Identity, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Email: id.Email,
	})
	return token.SignedString(secretKey)
}

// ParseToken verifies a session token and extracts the identity.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// TokenProvider is a Provider driven by SetToken/Clear calls. It fans each
// transition out to subscribers; slow subscribers miss events rather than
// block a sign-in.
type TokenProvider struct {
	secretKey []byte

	mu      sync.Mutex
	current *Identity
	subs    map[int]chan Change
	nextSub int
}

func NewTokenProvider(secretKey []byte) *TokenProvider {
	return &TokenProvider{
		secretKey: secretKey,
		subs:      make(map[int]chan Change),
	}
}

func (p *TokenProvider) Current(ctx context.Context) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	id := *p.current
	return &id, nil
}

// SetToken verifies the token and makes its identity current, notifying
// subscribers of the transition.
func (p *TokenProvider) SetToken(tokenString string) (*Identity, error) {
	id, err := ParseToken(tokenString, p.secretKey)
	if err != nil {
		return nil, err
	}
	p.swap(id)
	return id, nil
}

// Clear signs the current identity out.
func (p *TokenProvider) Clear() {
	p.swap(nil)
}

func (p *TokenProvider) swap(next *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.current
	p.current = next
	change := Change{Old: prev, New: next}
	for _, ch := range p.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (p *TokenProvider) Subscribe() (<-chan Change, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Change, 8)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
