package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSecretRequired     = errors.New("auth: jwt secret required")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 7 characters")
	ErrPasswordForbidden  = errors.New("auth: password must not contain \"password\"")
	ErrInvalidEmail       = errors.New("auth: email is invalid")
)

// bcryptCost matches the work factor the account store has always used;
// raising it would invalidate no existing hashes but slow every login.
const bcryptCost = 8

const minPasswordLength = 7

// Service issues and verifies signed session tokens. Tokens carry the user
// id as the subject; when ttl is zero they never expire and remain valid
// until revoked server-side.
type Service struct {
	secret   []byte
	ttl      time.Duration
	validate *validator.Validate
}

func NewService(secret string, ttl time.Duration) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		validate: validator.New(),
	}, nil
}

// Issue signs a session token for the given user id.
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		// a unique id per issuance; iat alone has second precision, so
		// two logins in the same second would otherwise mint identical
		// tokens and revoking one session would revoke both
		ID: uuid.NewString(),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates the token signature and returns the embedded user id.
// Any failure, including a malformed payload or a foreign signing method,
// surfaces as ErrInvalidToken.
func (s *Service) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// HashPassword returns the bcrypt hash to persist in place of the plaintext.
func (s *Service) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash against a submitted plaintext.
func (s *Service) CheckPassword(hash, plain string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidatePassword enforces the account password policy: minimum length
// and no literal "password" substring.
func (s *Service) ValidatePassword(plain string) error {
	plain = strings.TrimSpace(plain)
	if len(plain) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.Contains(plain, "password") {
		return ErrPasswordForbidden
	}
	return nil
}

// ValidateEmail checks address syntax.
func (s *Service) ValidateEmail(email string) error {
	if s.validate.Var(email, "required,email") != nil {
		return ErrInvalidEmail
	}
	return nil
}
