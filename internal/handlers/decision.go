package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"parallel/internal/models"
	"parallel/internal/services"
	"parallel/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DecisionHandler struct {
	conn        *gorm.DB
	ai          *services.AIService
	recommender *services.Recommender
}

func NewDecisionHandler(conn *gorm.DB, ai *services.AIService, recommender *services.Recommender) *DecisionHandler {
	return &DecisionHandler{conn: conn, ai: ai, recommender: recommender}
}

type createDecisionRequest struct {
	UserID  uint   `json:"user_id"`
	Content string `json:"content"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
}

// Create 保存前生成一次 AI 预测，之后不再重算
func (h *DecisionHandler) Create(c *gin.Context) {
	var req createDecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	// 未指定 user_id 时使用当前登录用户
	if req.UserID == 0 {
		if u := currentUser(c); u != nil {
			req.UserID = u.ID
		}
	}

	content := strings.TrimSpace(req.Content)
	optionA := strings.TrimSpace(req.OptionA)
	optionB := strings.TrimSpace(req.OptionB)
	if content == "" {
		respondError(c, fmt.Errorf("%w: decision content is required", services.ErrInvalidInput))
		return
	}
	if optionA == "" || optionB == "" {
		respondError(c, fmt.Errorf("%w: both options are required", services.ErrInvalidInput))
		return
	}
	if req.UserID == 0 {
		respondError(c, fmt.Errorf("%w: user_id is required", services.ErrInvalidInput))
		return
	}

	ctx := c.Request.Context()
	if _, err := findUser(ctx, h.conn, req.UserID); err != nil {
		respondError(c, notFound(err, "User"))
		return
	}

	predictions := h.ai.PredictConsequences(ctx, content)
	decision := models.Decision{
		UserID:             req.UserID,
		Content:            content,
		OptionA:            optionA,
		OptionB:            optionB,
		AIConsequenceGood:  predictions.Good,
		AIConsequenceBad:   predictions.Bad,
		AIConsequenceWeird: predictions.Weird,
	}
	if err := h.conn.WithContext(ctx).Create(&decision).Error; err != nil {
		respondError(c, err)
		return
	}

	resp, err := enrichDecision(ctx, h.conn, decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List 过滤条件互斥，优先级: user_id > following_user_id > search
func (h *DecisionHandler) List(c *gin.Context) {
	offset, limit := pageParams(c, defaultDecisionLimit)
	ctx := c.Request.Context()

	query := h.conn.WithContext(ctx).Model(&models.Decision{})
	if raw := c.Query("user_id"); raw != "" {
		id, ok := utils.StringToUint(raw)
		if !ok {
			respondError(c, fmt.Errorf("%w: invalid user_id", services.ErrInvalidInput))
			return
		}
		query = query.Where("user_id = ?", id)
	} else if raw := c.Query("following_user_id"); raw != "" {
		id, ok := utils.StringToUint(raw)
		if !ok {
			respondError(c, fmt.Errorf("%w: invalid following_user_id", services.ErrInvalidInput))
			return
		}
		followed := h.conn.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", id)
		query = query.Where("user_id IN (?)", followed)
	} else if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var decisions []models.Decision
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&decisions).Error; err != nil {
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

func (h *DecisionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	decision, err := findDecision(ctx, h.conn, id)
	if err != nil {
		respondError(c, notFound(err, "Decision"))
		return
	}

	resp, err := enrichDecision(ctx, h.conn, *decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DecisionHandler) Recommend(c *gin.Context) {
	text := strings.TrimSpace(c.Param("text"))
	if text == "" {
		respondError(c, fmt.Errorf("%w: decision text is required", services.ErrInvalidInput))
		return
	}

	rec, err := h.recommender.Recommend(c.Request.Context(), text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
