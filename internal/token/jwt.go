package token

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNotAdmin     = errors.New("token does not grant admin rights")
)

const roleAdmin = "admin"

// JwtService signs and checks HS256 tokens. Game servers use it to tell the
// operator's connections apart from regular players and viewers.
type JwtService struct {
	secretKey string
	issuer    string
}

// NewJwtService creates a JwtService with the provided configuration.
func NewJwtService(secretKey, issuer string) *JwtService {
	return &JwtService{
		secretKey: secretKey,
		issuer:    issuer,
	}
}

// Generate creates a JWT for the given claims.
func (s *JwtService) Generate(claims map[string]interface{}, expTime time.Duration) (string, error) {
	jwtClaims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(expTime).Unix(),
		"iss": s.issuer,
	}
	for key, val := range claims {
		jwtClaims[key] = val
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	return token.SignedString([]byte(s.secretKey))
}

// Decode parses and validates a JWT, returning the claims if valid.
func (s *JwtService) Decode(tokenString string) (map[string]interface{}, error) {
	token, err := jwt.Parse(tokenString, s.getSigningKey)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AdminToken issues a token that lets its bearer start, pause, resume and
// fill rooms with bots.
func (s *JwtService) AdminToken(subject string, expTime time.Duration) (string, error) {
	return s.Generate(map[string]interface{}{
		"sub":  subject,
		"role": roleAdmin,
	}, expTime)
}

// VerifyAdmin returns nil when tokenString is a valid admin token.
func (s *JwtService) VerifyAdmin(tokenString string) error {
	if tokenString == "" {
		return ErrNotAdmin
	}
	claims, err := s.Decode(tokenString)
	if err != nil {
		return err
	}
	if role, _ := claims["role"].(string); role != roleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// getSigningKey returns the signing key for token validation.
func (s *JwtService) getSigningKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return []byte(s.secretKey), nil
}
