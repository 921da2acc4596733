package middleware

import (
	"net/http"
	"strings"

	"pharma-crm/internal/authn"
	"pharma-crm/internal/core"
	"pharma-crm/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const callerKey = "Caller"

// InjectCaller достаёт личность запроса: сначала bearer-токен,
// иначе cookie-сессия. Кладёт core.Caller в контекст gin.
func InjectCaller(db *gorm.DB, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if caller, err := authn.ParseToken(jwtSecret, token); err == nil {
				c.Set(callerKey, caller)
			}
			c.Next()
			return
		}

		sess := sessions.Default(c)
		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				// роль берём из БД, не из cookie — сессия хранит только id
				var user models.User
				if err := db.First(&user, uid).Error; err == nil && user.IsActive {
					c.Set(callerKey, core.Caller{UserID: user.ID, Role: user.Role})
				}
			}
		}

		c.Next()
	}
}

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(c *gin.Context) (core.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return core.Caller{}, false
	}
	caller, ok := v.(core.Caller)
	return caller, ok
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CallerFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, ok := roleSet[caller.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
