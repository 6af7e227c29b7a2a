package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and unexpected algorithms.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates the token expiry claim lies in the past.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the decoded identity carried by an access token.
type Claims struct {
	UserID    uint
	Role      string
	ExpiresAt time.Time
}

// TokenService issues and verifies signed, time-limited access tokens.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a token service for an HMAC algorithm (HS256, HS384 or HS512).
func NewTokenService(secret, algorithm string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret must not be empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok || method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenService{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token whose subject is the user id.
func (s *TokenService) Issue(userID uint, role string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(s.method, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": role,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Decode verifies the signature and expiry of a token and returns its claims.
func (s *TokenService) Decode(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	subject, err := mapClaims.GetSubject()
	if err != nil || subject == "" {
		return Claims{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || userID == 0 {
		return Claims{}, ErrTokenInvalid
	}

	expiry, err := mapClaims.GetExpirationTime()
	if err != nil || expiry == nil {
		return Claims{}, ErrTokenInvalid
	}

	role, _ := mapClaims["role"].(string)

	return Claims{
		UserID:    uint(userID),
		Role:      role,
		ExpiresAt: expiry.Time,
	}, nil
}
