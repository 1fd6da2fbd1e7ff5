package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"parallel/internal/models"
	"parallel/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VoteHandler struct {
	conn *gorm.DB
}

func NewVoteHandler(conn *gorm.DB) *VoteHandler {
	return &VoteHandler{conn: conn}
}

type createVoteRequest struct {
	UserID     uint   `json:"user_id"`
	DecisionID uint   `json:"decision_id"`
	Choice     string `json:"choice"`
}

// Vote 每人每个决定一票。先查重给出友好提示，唯一索引兜底并发重复
func (h *VoteHandler) Vote(c *gin.Context) {
	var req createVoteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == 0 {
		if u := currentUser(c); u != nil {
			req.UserID = u.ID
		}
	}

	ctx := c.Request.Context()
	decision, err := findDecision(ctx, h.conn, req.DecisionID)
	if err != nil {
		respondError(c, notFound(err, "Decision"))
		return
	}
	if _, err := findUser(ctx, h.conn, req.UserID); err != nil {
		respondError(c, notFound(err, "User"))
		return
	}

	choice, ok := models.NormalizeChoice(req.Choice, *decision)
	if !ok {
		respondError(c, fmt.Errorf("%w: invalid choice %q", services.ErrInvalidInput, req.Choice))
		return
	}

	var count int64
	err = h.conn.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND decision_id = ?", req.UserID, req.DecisionID).
		Count(&count).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if count > 0 {
		respondError(c, fmt.Errorf("%w: user already voted on this decision", services.ErrDuplicate))
		return
	}

	vote := models.Vote{
		UserID:     req.UserID,
		DecisionID: req.DecisionID,
		Choice:     choice,
	}
	if err := h.conn.WithContext(ctx).Create(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: user already voted on this decision", services.ErrDuplicate)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

// Counts 实时统计，不缓存
func (h *VoteHandler) Counts(c *gin.Context) {
	id, ok := paramID(c, "decision_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := findDecision(ctx, h.conn, id); err != nil {
		respondError(c, notFound(err, "Decision"))
		return
	}

	tallies, err := services.CountVotes(ctx, h.conn, []uint{id})
	if err != nil {
		respondError(c, err)
		return
	}
	counts := tallies[id]
	c.JSON(http.StatusOK, gin.H{
		"decision_id": id,
		"option_a":    counts.OptionA,
		"option_b":    counts.OptionB,
		"total":       counts.Total(),
	})
}
