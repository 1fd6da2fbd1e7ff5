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

const notEnoughPersonalityData = "Not enough data - post some decisions first!"

type UserHandler struct {
	conn *gorm.DB
	ai   *services.AIService
}

func NewUserHandler(conn *gorm.DB, ai *services.AIService) *UserHandler {
	return &UserHandler{conn: conn, ai: ai}
}

// ProfileResponse 用户主页信息
type ProfileResponse struct {
	models.PublicUser
	DecisionsCount int64 `json:"decisions_count"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	MemberDays     int   `json:"member_days"`
}

// CreateDeprecated 旧的无密码注册接口已下线
func (h *UserHandler) CreateDeprecated(c *gin.Context) {
	c.JSON(http.StatusGone, gin.H{"detail": "This endpoint is deprecated. Use /api/auth/register instead."})
}

func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := findUser(ctx, h.conn, id)
	if err != nil {
		respondError(c, notFound(err, "User"))
		return
	}

	resp := ProfileResponse{
		PublicUser: user.Public(),
		MemberDays: utils.DaysSince(user.CreatedAt),
	}
	counts := []struct {
		model interface{}
		where string
		dst   *int64
	}{
		{&models.Decision{}, "user_id = ?", &resp.DecisionsCount},
		{&models.Follow{}, "following_id = ?", &resp.FollowersCount},
		{&models.Follow{}, "follower_id = ?", &resp.FollowingCount},
	}
	for _, q := range counts {
		if err := h.conn.WithContext(ctx).Model(q.model).Where(q.where, id).Count(q.dst).Error; err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Search 按用户名或简介模糊匹配
func (h *UserHandler) Search(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		c.JSON(http.StatusOK, []models.PublicUser{})
		return
	}

	offset, limit := pageParams(c, defaultCommentLimit)
	pattern := "%" + q + "%"
	var users []models.User
	err := h.conn.WithContext(c.Request.Context()).
		Where("LOWER(username) LIKE ? OR LOWER(bio) LIKE ?", pattern, pattern).
		Order("username ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicUsers(users))
}

func (h *UserHandler) Follow(c *gin.Context) {
	followerID, followingID, ok := followIDs(c)
	if !ok {
		return
	}
	// 自己关注自己优先于存在性检查
	if followerID == followingID {
		respondError(c, fmt.Errorf("%w: cannot follow yourself", services.ErrInvalidInput))
		return
	}
	if !h.ensureFollowUsers(c, followerID, followingID) {
		return
	}

	ctx := c.Request.Context()
	var count int64
	err := h.conn.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if count > 0 {
		respondError(c, fmt.Errorf("%w: already following this user", services.ErrDuplicate))
		return
	}

	follow := models.Follow{FollowerID: followerID, FollowingID: followingID}
	if err := h.conn.WithContext(ctx).Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: already following this user", services.ErrDuplicate)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully followed user", "follow": follow})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	followerID, followingID, ok := followIDs(c)
	if !ok || !h.ensureFollowUsers(c, followerID, followingID) {
		return
	}

	result := h.conn.WithContext(c.Request.Context()).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if result.Error != nil {
		respondError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, fmt.Errorf("%w: not following this user", services.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully unfollowed user"})
}

// followIDs 解析路径中的 id 与 target_id
func followIDs(c *gin.Context) (uint, uint, bool) {
	followerID, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	followingID, ok := paramID(c, "target_id")
	if !ok {
		return 0, 0, false
	}
	return followerID, followingID, true
}

// ensureFollowUsers 确认关注双方都存在
func (h *UserHandler) ensureFollowUsers(c *gin.Context, followerID, followingID uint) bool {
	ctx := c.Request.Context()
	if _, err := findUser(ctx, h.conn, followerID); err != nil {
		respondError(c, notFound(err, "User"))
		return false
	}
	if _, err := findUser(ctx, h.conn, followingID); err != nil {
		respondError(c, notFound(err, "User to follow"))
		return false
	}
	return true
}

func (h *UserHandler) Following(c *gin.Context) {
	h.listFollowEdges(c, "follower_id", "following_id")
}

func (h *UserHandler) Followers(c *gin.Context) {
	h.listFollowEdges(c, "following_id", "follower_id")
}

// listFollowEdges 按 matchCol 过滤关注关系，返回 selectCol 指向的用户
func (h *UserHandler) listFollowEdges(c *gin.Context, matchCol, selectCol string) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := findUser(ctx, h.conn, id); err != nil {
		respondError(c, notFound(err, "User"))
		return
	}

	edges := h.conn.Model(&models.Follow{}).Select(selectCol).Where(matchCol+" = ?", id)
	var users []models.User
	if err := h.conn.WithContext(ctx).Where("id IN (?)", edges).Order("username ASC").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicUsers(users))
}

func (h *UserHandler) Decisions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := findUser(ctx, h.conn, id); err != nil {
		respondError(c, notFound(err, "User"))
		return
	}

	offset, limit := pageParams(c, defaultDecisionLimit)
	var decisions []models.Decision
	err := h.conn.WithContext(ctx).
		Where("user_id = ?", id).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&decisions).Error
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := enrichDecisions(ctx, h.conn, decisions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Personality(c *gin.Context) {
	texts, ok := h.decisionTexts(c)
	if !ok {
		return
	}
	if len(texts) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"personality_report": notEnoughPersonalityData,
			"personality_html":   utils.RenderMarkdown(notEnoughPersonalityData),
		})
		return
	}

	report := h.ai.PredictPersonality(c.Request.Context(), texts)
	c.JSON(http.StatusOK, gin.H{
		"personality_report": report,
		"personality_html":   utils.RenderMarkdown(report),
	})
}

func (h *UserHandler) LifeAreas(c *gin.Context) {
	texts, ok := h.decisionTexts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.ai.AnalyzeLifeAreas(c.Request.Context(), texts))
}

// decisionTexts 取出用户全部决定的正文，按发布顺序
func (h *UserHandler) decisionTexts(c *gin.Context) ([]string, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	if _, err := findUser(ctx, h.conn, id); err != nil {
		respondError(c, notFound(err, "User"))
		return nil, false
	}

	var texts []string
	err := h.conn.WithContext(ctx).Model(&models.Decision{}).
		Where("user_id = ?", id).
		Order("id ASC").
		Pluck("content", &texts).Error
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return texts, true
}

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
