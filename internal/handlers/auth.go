package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"parallel/internal/models"
	"parallel/internal/services"
	"parallel/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	minPasswordLength     = 6
	maxProfileFieldLength = 500
)

type AuthHandler struct {
	conn *gorm.DB
	auth *services.AuthService
}

func NewAuthHandler(conn *gorm.DB, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{conn: conn, auth: auth}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type updateProfileRequest struct {
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// createUser 注册与校验的通用逻辑
func (h *AuthHandler) createUser(c *gin.Context, req registerRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", services.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", services.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", services.ErrInvalidInput, minPasswordLength)
	}

	ctx := c.Request.Context()
	var count int64
	if err := h.conn.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username already registered", services.ErrDuplicate)
	}
	if err := h.conn.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: email already registered", services.ErrDuplicate)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.conn.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username or email already registered", services.ErrDuplicate)
		}
		return nil, err
	}
	return &user, nil
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.createUser(c, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login 兼容 JSON 与表单两种提交方式
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), h.conn, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			err = fmt.Errorf("%w: incorrect username or password", services.ErrUnauthorized)
		}
		respondError(c, err)
		return
	}

	token, err := h.auth.IssueToken(*user, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	updates := map[string]interface{}{}
	if req.Bio != nil {
		bio := utils.CleanText(*req.Bio)
		if len([]rune(bio)) > maxProfileFieldLength {
			respondError(c, fmt.Errorf("%w: bio must be at most %d characters", services.ErrInvalidInput, maxProfileFieldLength))
			return
		}
		updates["bio"] = bio
		user.Bio = bio
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if len(avatar) > maxProfileFieldLength {
			respondError(c, fmt.Errorf("%w: avatar_url must be at most %d characters", services.ErrInvalidInput, maxProfileFieldLength))
			return
		}
		updates["avatar_url"] = avatar
		user.AvatarURL = avatar
	}

	if len(updates) > 0 {
		if err := h.conn.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
