package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"parallel/internal/middleware"
	"parallel/internal/models"
	"parallel/internal/services"
	"parallel/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 默认分页参数
const (
	defaultDecisionLimit = 10
	defaultCommentLimit  = 20
	maxPageLimit         = 100
)

// respondError 把领域错误映射为状态码，响应体为 {"detail": "..."}
func respondError(c *gin.Context, err error) {
	kinds := []struct {
		kind   error
		status int
	}{
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrDuplicate, http.StatusBadRequest},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			if k.status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			c.AbortWithStatusJSON(k.status, gin.H{"detail": detail(err, k.kind)})
			return
		}
	}

	c.Error(err)
	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

func detail(err, kind error) string {
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
	if msg == "" {
		return kind.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func currentUser(c *gin.Context) *models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

// bindJSON 解析请求体，失败时直接返回 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.StringToUint(c.Param(name))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Invalid " + strings.ReplaceAll(name, "_", " ")})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context, defLimit int) (int, int) {
	return utils.ClampPage(
		utils.StringToInt(c.Query("offset")),
		utils.StringToIntDefault(c.Query("limit"), defLimit),
		defLimit,
		maxPageLimit,
	)
}

func findUser(ctx context.Context, conn *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := conn.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func findDecision(ctx context.Context, conn *gorm.DB, id uint) (*models.Decision, error) {
	var d models.Decision
	if err := conn.WithContext(ctx).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// notFound 给 findXxx 返回的 ErrNotFound 附上资源名称
func notFound(err error, what string) error {
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", services.ErrNotFound, what)
	}
	return err
}
