package services

import (
	"context"

	"parallel/internal/models"

	"gorm.io/gorm"
)

type tallyRow struct {
	DecisionID uint
	Choice     string
	N          int64
}

// CountVotes 一次分组查询统计票数；ids 为空时统计全部决定
func CountVotes(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]models.VoteCounts, error) {
	var rows []tallyRow
	q := db.WithContext(ctx).Model(&models.Vote{}).
		Select("decision_id, choice, COUNT(*) AS n").
		Group("decision_id, choice")
	if len(ids) > 0 {
		q = q.Where("decision_id IN ?", ids)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint]models.VoteCounts)
	for _, r := range rows {
		c := out[r.DecisionID]
		switch r.Choice {
		case models.ChoiceOptionA, models.LegacyChoiceDoIt:
			c.OptionA += r.N
		case models.ChoiceOptionB, models.LegacyChoiceDontDoIt:
			c.OptionB += r.N
		}
		out[r.DecisionID] = c
	}
	return out, nil
}
