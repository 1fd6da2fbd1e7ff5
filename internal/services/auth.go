package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parallel/internal/models"
	"parallel/internal/utils"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// DefaultAccessTokenTTL 与旧版保持一致: 30 分钟
const DefaultAccessTokenTTL = 30 * time.Minute

// Claims 访问令牌载荷，Subject 为用户名
type Claims struct {
	UserID uint `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueToken 签发 HS256 令牌; ttl 为 0 时使用默认有效期
func (s *AuthService) IssueToken(user models.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken 校验签名与过期时间，返回用户名
func (s *AuthService) ParseToken(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	return claims.Subject, nil
}

// Authenticate 先按用户名查找，再按邮箱查找
func (s *AuthService) Authenticate(ctx context.Context, db *gorm.DB, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrUnauthorized
	}

	var user models.User
	err := db.WithContext(ctx).Where("username = ?", identifier).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 邮箱注册时已统一小写
		err = db.WithContext(ctx).Where("email = ?", strings.ToLower(identifier)).First(&user).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

// ResolveUser 解析令牌并加载对应用户
func (s *AuthService) ResolveUser(ctx context.Context, db *gorm.DB, tokenStr string) (*models.User, error) {
	username, err := s.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		return nil, err
	}
	return &user, nil
}
