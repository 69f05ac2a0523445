package utils

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
)

// GenerateJWT generates a signed token for an admin user
func GenerateJWT(userID string, role string, cfg *config.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Second * time.Duration(cfg.JWT.ExpiresIn)).Unix(),
	})
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateJWT validates a token and returns its claims
func ValidateJWT(tokenString string, cfg *config.Config) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// CryptoSeededRand returns a math/rand generator seeded from the OS
// entropy source. The lottery draw takes the generator as a dependency so
// tests can substitute a fixed seed.
func CryptoSeededRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		seed = time.Now().UnixNano()
	} else {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return rand.New(rand.NewSource(seed))
}

// WithRetry runs fn up to attempts times, backing off exponentially after
// each transient conflict. Non-transient errors abort immediately. Once
// attempts are exhausted the transient kind is surfaced to the caller.
func WithRetry(ctx context.Context, attempts int, baseBackoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := baseBackoff
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, models.ErrTransientConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
