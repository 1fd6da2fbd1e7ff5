package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"parallel/internal/models"
	"parallel/internal/services"
	"parallel/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

type CommentHandler struct {
	conn *gorm.DB
}

func NewCommentHandler(conn *gorm.DB) *CommentHandler {
	return &CommentHandler{conn: conn}
}

type createCommentRequest struct {
	DecisionID uint   `json:"decision_id"`
	Content    string `json:"content"`
}

// CommentResponse 评论附带作者公开信息
type CommentResponse struct {
	models.Comment
	User *models.PublicUser `json:"user"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := findDecision(ctx, h.conn, req.DecisionID); err != nil {
		respondError(c, notFound(err, "Decision"))
		return
	}

	content := utils.CleanText(req.Content)
	if content == "" {
		respondError(c, fmt.Errorf("%w: comment content is required", services.ErrInvalidInput))
		return
	}
	if len([]rune(content)) > maxCommentLength {
		respondError(c, fmt.Errorf("%w: comment must be at most %d characters", services.ErrInvalidInput, maxCommentLength))
		return
	}

	user := currentUser(c)
	comment := models.Comment{
		DecisionID: req.DecisionID,
		UserID:     user.ID,
		Content:    content,
	}
	if err := h.conn.WithContext(ctx).Create(&comment).Error; err != nil {
		respondError(c, err)
		return
	}

	author := user.Public()
	c.JSON(http.StatusOK, CommentResponse{Comment: comment, User: &author})
}

// List 按时间倒序
func (h *CommentHandler) List(c *gin.Context) {
	id, ok := paramID(c, "decision_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := findDecision(ctx, h.conn, id); err != nil {
		respondError(c, notFound(err, "Decision"))
		return
	}

	offset, limit := pageParams(c, defaultCommentLimit)
	var comments []models.Comment
	err := h.conn.WithContext(ctx).
		Where("decision_id = ?", id).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		respondError(c, err)
		return
	}

	userIDs := make([]uint, 0, len(comments))
	for _, cm := range comments {
		userIDs = append(userIDs, cm.UserID)
	}
	authors := map[uint]models.PublicUser{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := h.conn.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			respondError(c, err)
			return
		}
		for _, u := range users {
			authors[u.ID] = u.Public()
		}
	}

	resp := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		item := CommentResponse{Comment: cm}
		if author, ok := authors[cm.UserID]; ok {
			item.User = &author
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, resp)
}

// Delete 只有评论作者可以删除
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "comment_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var comment models.Comment
	if err := h.conn.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: comment not found", services.ErrNotFound)
		}
		respondError(c, err)
		return
	}

	if comment.UserID != currentUser(c).ID {
		respondError(c, fmt.Errorf("%w: not authorized to delete this comment", services.ErrForbidden))
		return
	}

	if err := h.conn.WithContext(ctx).Delete(&comment).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
