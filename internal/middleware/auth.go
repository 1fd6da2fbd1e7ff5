package middleware

import (
	"net/http"
	"strings"

	"parallel/internal/models"
	"parallel/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const CheckUserKey = "user"

// AuthRequired 必须在 LoadUser 之后使用，未登录返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		c.Next()
	}
}

// LoadUser 解析 Bearer 令牌并把用户放入 context; 令牌无效时按匿名处理，不拒绝请求
func LoadUser(auth *services.AuthService, conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token != "" {
			user, err := auth.ResolveUser(c.Request.Context(), conn, token)
			if err == nil {
				c.Set(CheckUserKey, user)
			} else {
				logrus.WithError(err).Debug("ignoring invalid bearer token")
			}
		}
		c.Next()
	}
}

// CurrentUser 返回 LoadUser 设置的用户
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(CheckUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
