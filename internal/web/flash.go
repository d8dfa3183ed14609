package web

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sibeo/internal/auth"
)

const (
	flashIssuer = "sibeo-web"
	flashCookie = "sibeo_flash"
	flashTTL    = time.Minute
)

// flashClaims carries a popup across a redirect
type flashClaims struct {
	Popup auth.Popup `json:"popup"`
	jwt.RegisteredClaims
}

// FlashSigner signs and verifies one-shot popup cookies
type FlashSigner struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewFlashSigner creates a signer. An empty secret gets a random per-process key.
func NewFlashSigner(secret string, ttl time.Duration) (*FlashSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate flash key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = flashTTL
	}
	return &FlashSigner{secretKey: key, issuer: flashIssuer, ttl: ttl}, nil
}

// Sign encodes a popup as a signed token
func (fs *FlashSigner) Sign(popup auth.Popup) (string, error) {
	now := time.Now()
	claims := &flashClaims{
		Popup: popup,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    fs.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(fs.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(fs.secretKey)
}

// Parse verifies a token and returns its popup
func (fs *FlashSigner) Parse(tokenString string) (*auth.Popup, error) {
	token, err := jwt.ParseWithClaims(tokenString, &flashClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return fs.secretKey, nil
	}, jwt.WithIssuer(fs.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse flash: %w", err)
	}

	claims, ok := token.Claims.(*flashClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid flash claims")
	}
	return &claims.Popup, nil
}
