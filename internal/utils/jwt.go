package utils

import (
	"errors"
	"strconv"
	"time"

	"tekpay/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "tekpay-api"
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// JWT signs and verifies HS256 access and refresh tokens.
type JWT struct {
	secret        []byte
	refreshSecret []byte
}

func NewJWT(secret, refreshSecret string) *JWT {
	return &JWT{secret: []byte(secret), refreshSecret: []byte(refreshSecret)}
}

// GenerateTokens generates an access token and a refresh token for the given user claims.
func (j *JWT) GenerateTokens(claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	if len(j.secret) == 0 || len(j.refreshSecret) == 0 {
		return "", "", errors.New("JWT secrets not configured")
	}
	now := time.Now()

	accessClaims := models.UserClaims{
		RegisteredClaims: registered(claims.UserID, now, AccessTokenTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		Permissions:      claims.Permissions,
		TokenVersion:     claims.TokenVersion,
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(j.secret)
	if err != nil {
		return "", "", err
	}

	refreshClaims := models.UserClaims{
		RegisteredClaims: registered(claims.UserID, now, RefreshTokenTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		TokenVersion:     claims.TokenVersion,
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(j.refreshSecret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func registered(userID uint, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
	}
}

// ParseToken parses and validates an access token.
func (j *JWT) ParseToken(tokenStr string) (*models.UserClaims, error) {
	return parse(tokenStr, j.secret)
}

// ParseRefreshToken parses and validates a refresh token.
func (j *JWT) ParseRefreshToken(tokenStr string) (*models.UserClaims, error) {
	return parse(tokenStr, j.refreshSecret)
}

func parse(tokenStr string, secret []byte) (*models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
