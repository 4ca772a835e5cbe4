package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vpnpanel/auth-service/internal/config"
)

// ErrInvalidToken is the single verification outcome for any bad token:
// wrong signature, wrong key, malformed, or expired. Callers never learn
// which, to avoid oracle leakage.
var ErrInvalidToken = errors.New("token invalid or expired")

// Claims represents the JWT registered claims plus auth specific metadata.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Pair is one minted access/refresh token set.
type Pair struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
}

// Service mints and verifies the HS256 token pair. Access and refresh
// tokens are signed with distinct keys so possession of one never allows
// forging the other.
type Service struct {
	cfg    config.TokenConfig
	parser *jwt.Parser
}

// NewService constructs a token Service.
func NewService(cfg config.TokenConfig) *Service {
	return &Service{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}
}

// Issue mints an access/refresh pair bound to the given session id. Both
// tokens carry the full claim set {sub, email, role, sid, iat, exp}.
func (s *Service) Issue(operatorID uuid.UUID, email, role string, sessionID uuid.UUID) (*Pair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.cfg.AccessTokenTTL)

	access, err := s.sign(operatorID, email, role, sessionID, now, accessExp, s.cfg.AccessSigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(operatorID, email, role, sessionID, now, now.Add(s.cfg.RefreshTokenTTL), s.cfg.RefreshSigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:          access,
		AccessTokenExpiresAt: accessExp,
		RefreshToken:         refresh,
	}, nil
}

func (s *Service) sign(operatorID uuid.UUID, email, role string, sessionID uuid.UUID, now, exp time.Time, key string) (string, error) {
	claims := &Claims{
		Email:     email,
		Role:      role,
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			// NumericDate truncates to whole seconds; the jti keeps two
			// tokens for the same session minted within one second distinct.
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   operatorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.cfg.AccessSigningKey)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.cfg.RefreshSigningKey)
}

func (s *Service) verify(tokenString, key string) (*Claims, error) {
	parsed, err := s.parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(key), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
