package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common credential errors.
var (
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingClaims = errors.New("token missing required claims")
)

// Role is the numeric role claim carried by upstream-issued tokens.
type Role int

const (
	RoleStudent Role = 1
	RoleAdmin   Role = 3
)

// Claims is the single recognized claim shape for upstream bearer tokens.
// The upstream historically emitted the role and faculty under several
// alternate field names; this gateway accepts exactly one shape and fails
// fast on anything else.
type Claims struct {
	jwt.RegisteredClaims
	Role    Role `json:"role"`
	Faculty int  `json:"faculty"`
}

// IsStudent reports whether the claims identify a student.
func (c *Claims) IsStudent() bool { return c.Role == RoleStudent }

// IsAdmin reports whether the claims identify an administrator.
func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Decoder parses bearer credentials into Claims.
type Decoder struct {
	secret []byte
	now    func() time.Time
}

// NewDecoder creates a Decoder. When secret is empty the signature is not
// verified (the upstream owns token issuance and may rotate keys without
// us); expiry and claim shape are enforced either way.
func NewDecoder(secret string) *Decoder {
	return &Decoder{secret: []byte(secret), now: time.Now}
}

// Decode parses and validates a bearer token string.
func (d *Decoder) Decode(raw string) (*Claims, error) {
	claims := &Claims{}

	if len(d.secret) > 0 {
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return d.secret, nil
		}, jwt.WithTimeFunc(d.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !tok.Valid {
			return nil, errors.New("invalid token claims")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		// ParseUnverified skips registered-claim checks, so enforce expiry here.
		if claims.ExpiresAt != nil && !claims.ExpiresAt.After(d.now()) {
			return nil, ErrTokenExpired
		}
	}

	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Claims) validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: sub", ErrMissingClaims)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: exp", ErrMissingClaims)
	}
	switch c.Role {
	case RoleStudent:
		if c.Faculty <= 0 {
			return fmt.Errorf("%w: faculty", ErrMissingClaims)
		}
	case RoleAdmin:
		// Admins are not bound to a faculty.
	default:
		return fmt.Errorf("%w: role", ErrMissingClaims)
	}
	return nil
}
