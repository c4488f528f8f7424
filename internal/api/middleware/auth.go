package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/identity"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
	"github.com/d60-Lab/roadmap-api/pkg/response"
)

const (
	ContextUID   = "uid"
	ContextEmail = "email"
)

// Auth 校验 Authorization: Bearer <token>，通过后把 uid 写入 gin.Context
func Auth(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c, "Unauthorized: No token provided")
			return
		}

		claims, err := provider.VerifyToken(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			response.Unauthorized(c, "Unauthorized: Invalid token")
			return
		}

		c.Set(ContextUID, claims.UID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UID 返回已认证请求的用户 ID，未认证时为空
func UID(c *gin.Context) string {
	return c.GetString(ContextUID)
}

func bearerToken(header string) string {
	if len(header) <= 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
