package models

import (
	"strings"
	"time"
)

// 投票选项的规范取值
const (
	ChoiceOptionA = "option_a"
	ChoiceOptionB = "option_b"

	// 旧版 "做 / 不做" 词汇，只在读入时兼容
	LegacyChoiceDoIt     = "do_it"
	LegacyChoiceDontDoIt = "dont_do_it"

	LegacyOptionALabel = "Do it"
	LegacyOptionBLabel = "Don't do it"
)

// Vote 每个用户对每个决定最多一票，由 (user_id, decision_id) 唯一索引保证
type Vote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_vote_user_decision" json:"user_id"`
	DecisionID uint      `gorm:"not null;index;uniqueIndex:idx_vote_user_decision" json:"decision_id"`
	Choice     string    `gorm:"size:20;not null" json:"choice"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeChoice maps the accepted spellings of a choice onto option_a / option_b.
// The exact option label of the decision is accepted as well. ok is false for anything else.
func NormalizeChoice(raw string, d Decision) (string, bool) {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case ChoiceOptionA, LegacyChoiceDoIt:
		return ChoiceOptionA, true
	case ChoiceOptionB, LegacyChoiceDontDoIt:
		return ChoiceOptionB, true
	}
	if value == "" {
		return "", false
	}
	if d.OptionA != "" && strings.EqualFold(value, d.OptionA) {
		return ChoiceOptionA, true
	}
	if d.OptionB != "" && strings.EqualFold(value, d.OptionB) {
		return ChoiceOptionB, true
	}
	return "", false
}

// VoteCounts 按选项统计的票数
type VoteCounts struct {
	OptionA int64 `json:"option_a"`
	OptionB int64 `json:"option_b"`
}

func (v VoteCounts) Total() int64 {
	return v.OptionA + v.OptionB
}
