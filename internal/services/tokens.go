package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
)

const (
	// RevokedTokenKeyPrefix is the Redis key prefix for logged-out token ids.
	RevokedTokenKeyPrefix = "revoked_token:"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims identify the account a session token was issued to.
type Claims struct {
	jwt.RegisteredClaims
}

// AccountID parses the subject back into an ObjectID.
func (c *Claims) AccountID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Subject)
}

// TokenService signs session tokens and tracks revoked ones in Redis.
// Without Redis, logout only clears the cookie.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	log    *logger.Logger
}

func NewTokenService(secret string, ttl time.Duration, rdb *redis.Client, log *logger.Logger) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, rdb: rdb, log: log}
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for accountID and returns it with its expiry.
func (s *TokenService) Issue(accountID primitive.ObjectID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.Hex(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry, then checks the revocation list.
func (s *TokenService) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrTokenInvalid
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.rdb.Set(ctx, RevokedTokenKeyPrefix+claims.ID, "1", remaining).Err()
}

func (s *TokenService) isRevoked(ctx context.Context, jti string) bool {
	if s.rdb == nil || jti == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	n, err := s.rdb.Exists(ctx, RevokedTokenKeyPrefix+jti).Result()
	if err != nil {
		// Fail open: Redis trouble should not log everyone out.
		s.log.Warn("revocation check failed", "error", err)
		return false
	}
	return n > 0
}
