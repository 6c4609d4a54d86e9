package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/model"
)

// Claims represents JWT claims with token type, owning username and
// session identifier.
type Claims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWT creates a new JWT token manager with the provided secret key
// and token lifetimes.
func NewJWT(secretKey string, accessTTL, refreshTTL time.Duration) model.TokenManager {
	return &JWT{secretKey: secretKey, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// GenerateAccessToken creates a short-lived access token bound to a
// session. The JTI makes every token unique even within one clock second,
// so token hashes never collide across rotations.
func (j *JWT) GenerateAccessToken(username, sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  username,
		SessionID: sessionID,
		TokenType: typeAccess,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(username, sessionID string) (string, string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.refreshTTL)
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  username,
		SessionID: sessionID,
		TokenType: typeRefresh,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, jti, expiresAt, nil
}

// ParseAccessToken validates an access token and extracts its claims.
func (j *JWT) ParseAccessToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, typeAccess)
}

// ParseRefreshToken validates a refresh token and extracts its claims.
func (j *JWT) ParseRefreshToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, typeRefresh)
}

func (j *JWT) parse(tokenString, wantType string) (model.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.TokenClaims{}, model.ErrTokenExpired
		}
		return model.TokenClaims{}, fmt.Errorf("failed to parse token: %w", model.ErrTokenMalformed)
	}
	if !token.Valid {
		return model.TokenClaims{}, model.ErrTokenMalformed
	}
	if claims.TokenType != wantType {
		return model.TokenClaims{}, model.ErrTokenMalformed
	}

	return model.TokenClaims{
		Username:  claims.Username,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
