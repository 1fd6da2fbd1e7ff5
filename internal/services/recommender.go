package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"parallel/internal/models"

	"github.com/pmezard/go-difflib/difflib"
	"gorm.io/gorm"
)

// 排序参数。票数按固定常量归一化，不随实际分布调整
const (
	SimilarityThreshold = 0.3
	SimilarityWeight    = 0.7
	VoteWeight          = 0.3
	VoteNormalization   = 100.0

	DefaultSimilarLimit  = 20
	ConsensusContextSize = 5
)

const NotEnoughDataMessage = "Not enough similar decisions found to make a recommendation yet."

type SimilarDecision struct {
	Decision     models.Decision `json:"decision"`
	Similarity   float64         `json:"similarity"`
	OptionACount int64           `json:"option_a_count"`
	OptionBCount int64           `json:"option_b_count"`
	TotalVotes   int64           `json:"total_votes"`
	Score        float64         `json:"score"`
}

type Recommendation struct {
	Recommendation        string            `json:"recommendation"`
	SimilarDecisionsCount int               `json:"similar_decisions_count"`
	TopSimilarDecisions   []SimilarDecision `json:"top_similar_decisions,omitempty"`
}

type Recommender struct {
	db *gorm.DB
	ai *AIService
}

func NewRecommender(db *gorm.DB, ai *AIService) *Recommender {
	return &Recommender{db: db, ai: ai}
}

// Similarity 忽略大小写的序列匹配比率，取值 [0,1]
func Similarity(a, b string) float64 {
	sa := strings.Split(strings.ToLower(a), "")
	sb := strings.Split(strings.ToLower(b), "")
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	return difflib.NewMatcher(sa, sb).Ratio()
}

// BlendedScore 相似度与票数的加权和
func BlendedScore(similarity float64, totalVotes int64) float64 {
	return SimilarityWeight*similarity + VoteWeight*(float64(totalVotes)/VoteNormalization)
}

// FindSimilar 全表扫描所有决定，过滤掉相似度不足或没有投票的，按综合分降序
func (r *Recommender) FindSimilar(ctx context.Context, text string, limit int) ([]SimilarDecision, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	var decisions []models.Decision
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	if len(decisions) == 0 {
		return nil, nil
	}

	tallies, err := CountVotes(ctx, r.db, nil)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	var out []SimilarDecision
	for _, d := range decisions {
		counts := tallies[d.ID]
		total := counts.Total()
		if total <= 0 {
			continue
		}
		sim := Similarity(text, d.Content)
		if sim <= SimilarityThreshold {
			continue
		}
		out = append(out, SimilarDecision{
			Decision:     d,
			Similarity:   sim,
			OptionACount: counts.OptionA,
			OptionBCount: counts.OptionB,
			TotalVotes:   total,
			Score:        BlendedScore(sim, total),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recommend 没有可用的相似决定时直接返回固定文案，不调用 AI
func (r *Recommender) Recommend(ctx context.Context, text string) (Recommendation, error) {
	similar, err := r.FindSimilar(ctx, text, DefaultSimilarLimit)
	if err != nil {
		return Recommendation{}, err
	}
	if len(similar) == 0 {
		return Recommendation{Recommendation: NotEnoughDataMessage}, nil
	}

	top := similar
	if len(top) > ConsensusContextSize {
		top = top[:ConsensusContextSize]
	}

	return Recommendation{
		Recommendation:        r.ai.GenerateConsensusRecommendation(ctx, text, top),
		SimilarDecisionsCount: len(similar),
		TopSimilarDecisions:   top,
	}, nil
}
