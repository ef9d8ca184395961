package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller_address"

var ErrNoCaller = errors.New("no authenticated caller on request")

// Claims carries the proven caller address. Tokens are minted by the
// external address-ownership proof service (message-sign-and-recover); the
// registry only verifies and extracts.
type Claims struct {
	Address string `json:"addr"`
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for an address. Used by tests and local
// tooling; production tokens come from the ownership-proof service sharing
// the same secret.
func IssueToken(secret, address string, ttl time.Duration) (string, error) {
	claims := Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Middleware validates the Authorization bearer token and stores the caller
// address on the request context. Role checks (admin, auditor) stay in the
// core; this layer only establishes identity.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Address == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerKey, claims.Address)
		c.Next()
	}
}

// CallerAddress extracts the authenticated address from the request context.
func CallerAddress(c *gin.Context) (string, error) {
	addr := c.GetString(callerKey)
	if addr == "" {
		return "", ErrNoCaller
	}
	return addr, nil
}
