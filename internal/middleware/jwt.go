package middleware

import (
	"net/http"
	"strings"
	"time"

	"standup-tracker/internal/model"
	"standup-tracker/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// JWTAuth validates the bearer token and checks the token ID against the
// session store, so a logged-out token stops working before it expires.
// The resolved identity is attached to the request context.
func JWTAuth(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token, err := jwt.Parse(auth[7:], func(t *jwt.Token) (interface{}, error) {
			return store.Secret(), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		jti, _ := claims["jti"].(string)
		ident, live := store.Current(jti)
		if !live {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(identityKey, ident)
		c.Set("token_id", jti)

		// Renew when less than a day remains.
		if exp, ok := claims["exp"].(float64); ok {
			if time.Until(time.Unix(int64(exp), 0)) < 24*time.Hour {
				newToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"jti":   jti,
					"uid":   ident.ID,
					"name":  ident.Name,
					"email": ident.Email,
					"exp":   time.Now().Add(store.TTL()).Unix(),
				}).SignedString(store.Secret())
				c.Header("X-New-Token", newToken)
			}
		}

		c.Next()
	}
}

// IdentityFrom extracts the authenticated identity set by JWTAuth.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	ident, ok := v.(model.Identity)
	return ident, ok
}

// TokenIDFrom extracts the session token ID set by JWTAuth.
func TokenIDFrom(c *gin.Context) string {
	return c.GetString("token_id")
}
