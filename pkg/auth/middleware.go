package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeySubject gin 上下文中保存令牌 subject 的键
const ContextKeySubject = "auth.subject"

// BearerToken 从 Authorization 头中取出 Bearer 令牌
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireBearer 校验 Bearer 令牌的 gin 中间件，失败返回 401
func RequireBearer(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}

		claims, err := signer.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid bearer token"})
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}
