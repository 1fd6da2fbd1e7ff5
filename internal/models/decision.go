package models

import (
	"time"
)

// Decision 用户发布的二选一困境
type Decision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	OptionA   string    `gorm:"size:200" json:"option_a"`
	OptionB   string    `gorm:"size:200" json:"option_b"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// AI 预测，仅在创建时生成一次
	AIConsequenceGood  string `gorm:"type:text" json:"ai_consequence_good"`
	AIConsequenceBad   string `gorm:"type:text" json:"ai_consequence_bad"`
	AIConsequenceWeird string `gorm:"type:text" json:"ai_consequence_weird"`
}

// Label returns the display label for a canonical choice.
func (d Decision) Label(choice string) string {
	switch choice {
	case ChoiceOptionA:
		return d.OptionA
	case ChoiceOptionB:
		return d.OptionB
	}
	return ""
}
