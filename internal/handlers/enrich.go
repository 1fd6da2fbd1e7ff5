package handlers

import (
	"context"

	"parallel/internal/models"
	"parallel/internal/services"

	"gorm.io/gorm"
)

// DecisionResponse 决定详情，附带作者与实时票数
type DecisionResponse struct {
	models.Decision
	Author        *models.PublicUser `json:"author"`
	Votes         models.VoteCounts  `json:"votes"`
	TotalVotes    int64              `json:"total_votes"`
	CommentsCount int64              `json:"comments_count"`
}

type commentCountRow struct {
	DecisionID uint
	N          int64
}

// enrichDecisions 每次请求现算，不缓存
func enrichDecisions(ctx context.Context, conn *gorm.DB, decisions []models.Decision) ([]DecisionResponse, error) {
	out := make([]DecisionResponse, 0, len(decisions))
	if len(decisions) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(decisions))
	userIDs := make([]uint, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.ID)
		userIDs = append(userIDs, d.UserID)
	}

	var authors []models.User
	if err := conn.WithContext(ctx).Where("id IN ?", userIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.PublicUser, len(authors))
	for _, u := range authors {
		byID[u.ID] = u.Public()
	}

	tallies, err := services.CountVotes(ctx, conn, ids)
	if err != nil {
		return nil, err
	}

	var rows []commentCountRow
	err = conn.WithContext(ctx).Model(&models.Comment{}).
		Select("decision_id, COUNT(*) AS n").
		Where("decision_id IN ?", ids).
		Group("decision_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	comments := make(map[uint]int64, len(rows))
	for _, r := range rows {
		comments[r.DecisionID] = r.N
	}

	for _, d := range decisions {
		resp := DecisionResponse{
			Decision:      d,
			Votes:         tallies[d.ID],
			TotalVotes:    tallies[d.ID].Total(),
			CommentsCount: comments[d.ID],
		}
		if author, ok := byID[d.UserID]; ok {
			resp.Author = &author
		}
		out = append(out, resp)
	}
	return out, nil
}

func enrichDecision(ctx context.Context, conn *gorm.DB, d models.Decision) (DecisionResponse, error) {
	list, err := enrichDecisions(ctx, conn, []models.Decision{d})
	if err != nil {
		return DecisionResponse{}, err
	}
	return list[0], nil
}
