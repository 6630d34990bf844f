// Package validator implements stateless verification of superuser JWTs
// issued by jarvis-auth.
//
// A Validator is read-only after construction: every validation is a pure
// function of the token, the configured key material, and the clock, so it
// is safe for arbitrary concurrent use without locking.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrTokenInvalid is returned when the token is malformed, carries a
	// bad signature, or is missing required claims.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned when the token signature verifies but
	// the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrSuperuserRequired is returned when the token is valid but its
	// subject is not a superuser.
	ErrSuperuserRequired = errors.New("superuser access required")
)

// AuthTypeSuperuserJWT tags identities produced by this validator.
const AuthTypeSuperuserJWT = "superuser_jwt"

// SuperuserUser is the identity extracted from a verified superuser token.
// It is derived purely from verified claims and never persisted.
type SuperuserUser struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email,omitempty"`
	AuthType string `json:"auth_type"`
}

// SignatureAlgorithm is an HMAC signing algorithm shared with jarvis-auth.
type SignatureAlgorithm string

const (
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
)

var allowedSigningAlgorithms = map[SignatureAlgorithm]jwa.SignatureAlgorithm{
	HS256: jwa.HS256,
	HS384: jwa.HS384,
	HS512: jwa.HS512,
}

// Validator verifies superuser tokens against a shared HMAC secret.
type Validator struct {
	secretKey        []byte
	algorithm        jwa.SignatureAlgorithm
	clock            jwt.Clock
	allowedClockSkew time.Duration
}

// Option configures a Validator. Options return errors to surface invalid
// configuration at construction time.
type Option func(*Validator) error

// WithSecretKey sets the HMAC key shared with jarvis-auth (REQUIRED).
func WithSecretKey(key []byte) Option {
	return func(v *Validator) error {
		if len(key) == 0 {
			return errors.New("secret key cannot be empty")
		}
		v.secretKey = key
		return nil
	}
}

// WithAlgorithm sets the signing algorithm.
//
// Default: HS256.
func WithAlgorithm(alg SignatureAlgorithm) Option {
	return func(v *Validator) error {
		jwxAlg, ok := allowedSigningAlgorithms[alg]
		if !ok {
			return fmt.Errorf("unsupported signature algorithm %q", alg)
		}
		v.algorithm = jwxAlg
		return nil
	}
}

// WithClockFunc overrides the time source used for expiry checks. Mainly
// useful in tests.
func WithClockFunc(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock func cannot be nil")
		}
		v.clock = jwt.ClockFunc(now)
		return nil
	}
}

// WithAllowedClockSkew sets the tolerated clock drift between this service
// and jarvis-auth when checking the exp claim.
//
// Default: none.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("allowed clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// New builds and returns a new *Validator.
//
// Required options:
//   - WithSecretKey: the HMAC key shared with jarvis-auth
//
// Optional options:
//   - WithAlgorithm: signing algorithm (default: HS256)
//   - WithAllowedClockSkew: tolerated clock drift for expiry checks
//   - WithClockFunc: custom time source
func New(opts ...Option) (*Validator, error) {
	v := &Validator{algorithm: jwa.HS256}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if len(v.secretKey) == 0 {
		return nil, errors.New("secret key is required (use WithSecretKey)")
	}

	return v, nil
}

// ValidateToken verifies a raw token string and returns the superuser
// identity it carries.
//
// The signature is verified before any claim is trusted. Failures map onto
// the package sentinels: ErrTokenInvalid for structural and cryptographic
// problems (including a missing or non-numeric user id), ErrTokenExpired for
// an exp in the past, and ErrSuperuserRequired when a valid token belongs to
// a regular user. No raw jwx errors cross this boundary unclassified.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*SuperuserUser, error) {
	parseOpts := []jwt.ParseOption{
		jwt.WithKey(v.algorithm, v.secretKey),
		jwt.WithValidate(true),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithAcceptableSkew(v.allowedClockSkew),
	}
	if v.clock != nil {
		parseOpts = append(parseOpts, jwt.WithClock(v.clock))
	}

	token, err := jwt.Parse([]byte(tokenString), parseOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, &claimsError{sentinel: ErrTokenExpired, details: err}
		}
		return nil, &claimsError{sentinel: ErrTokenInvalid, details: err}
	}

	if !boolClaim(token, "is_superuser") {
		return nil, ErrSuperuserRequired
	}

	sub := token.Subject()
	if sub == "" {
		return nil, &claimsError{sentinel: ErrTokenInvalid, details: errors.New("missing user id claim")}
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, &claimsError{sentinel: ErrTokenInvalid, details: fmt.Errorf("user id claim is not numeric: %w", err)}
	}

	return &SuperuserUser{
		UserID:   userID,
		Email:    stringClaim(token, "email"),
		AuthType: AuthTypeSuperuserJWT,
	}, nil
}

func boolClaim(token jwt.Token, name string) bool {
	raw, ok := token.Get(name)
	if !ok {
		return false
	}
	b, ok := raw.(bool)
	return ok && b
}

func stringClaim(token jwt.Token, name string) string {
	raw, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// claimsError wraps a lower-level verification failure with one of the
// package sentinels. We do not expose this publicly because the interface
// methods of Is and Unwrap give the caller all they need.
type claimsError struct {
	sentinel error
	details  error
}

// Is allows the error to support equality to its sentinel.
func (e *claimsError) Is(target error) bool {
	return target == e.sentinel
}

// Error returns a string representation of the error.
func (e *claimsError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just the sentinel.
func (e *claimsError) Unwrap() error {
	return e.details
}
