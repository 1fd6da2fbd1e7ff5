package handlers

import (
	"net/http"

	"parallel/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const leaderboardSize = 10

type LeaderboardHandler struct {
	conn *gorm.DB
}

func NewLeaderboardHandler(conn *gorm.DB) *LeaderboardHandler {
	return &LeaderboardHandler{conn: conn}
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	DecisionsCount int64  `json:"decisions_count"`
}

// Top 按发布决定数排名，没有发布过的用户不上榜
func (h *LeaderboardHandler) Top(c *gin.Context) {
	var rows []LeaderboardEntry
	err := h.conn.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Select("users.id AS user_id, users.username AS username, COUNT(decisions.id) AS decisions_count").
		Joins("JOIN decisions ON decisions.user_id = users.id").
		Group("users.id, users.username").
		Order("decisions_count DESC").Order("users.id ASC").
		Limit(leaderboardSize).
		Scan(&rows).Error
	if err != nil {
		respondError(c, err)
		return
	}

	for i := range rows {
		rows[i].Rank = i + 1
	}
	if rows == nil {
		rows = []LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, rows)
}
