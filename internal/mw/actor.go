package mw

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// actorKey is the gin context key the acting identity is stored under.
const actorKey = "actor"

// Actor extracts the acting user from a bearer token and stores it in the
// request context. It never rejects a request: authorization is entirely
// the caller's responsibility, and anonymous transitions are recorded with
// an empty actor. Tokens that fail signature verification are treated as
// anonymous rather than errors.
func Actor(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" || len(secret) == 0 {
			c.Next()
			return
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			c.Next()
			return
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set(actorKey, sub)
		}
		c.Next()
	}
}

// ActorFrom returns the acting identity set by Actor, or "" if the request
// was anonymous.
func ActorFrom(c *gin.Context) string {
	return c.GetString(actorKey)
}

func extractBearer(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
