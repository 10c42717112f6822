package models

import "time"

// Interaction protokolliert eine beantwortete Empfehlungsanfrage.
type Interaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserInput         string `json:"user_input" gorm:"type:text"`
	DetectedSentiment string `json:"detected_sentiment" gorm:"index"`
	DetectedKeyword   string `json:"detected_keyword,omitempty"`
	RecommendedPoemID uint   `json:"recommended_poem_id" gorm:"index"`
	Tier              string `json:"tier"`
	RequestID         string `json:"request_id,omitempty" gorm:"index"`
}

// TableName gibt explizit den Tabellennamen an.
func (Interaction) TableName() string {
	return "user_interactions"
}
