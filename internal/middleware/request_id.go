package middleware

import (
	"pharma-crm/internal/audit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "RequestID"

// RequestID присваивает запросу идентификатор для журнала аудита.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// MetaFrom collects the request context captured on every audit event.
func MetaFrom(c *gin.Context) audit.Meta {
	return audit.Meta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString(requestIDKey),
	}
}
