package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Verdict labels
const (
	LabelSpam = "spam"
	LabelHam  = "ham"
)

// Verdict is the recorded outcome of one classification. The text itself is
// never stored, only its digest and length.
type Verdict struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TextSHA256      string    `json:"text_sha256" gorm:"type:char(64);not null;index"`
	TextLength      int       `json:"text_length" gorm:"not null"`
	IsSpam          bool      `json:"is_spam" gorm:"not null;index"`
	Label           string    `json:"label" gorm:"type:varchar(8);not null"`
	Confidence      float64   `json:"confidence" gorm:"not null"`
	SpamProbability float64   `json:"spam_probability" gorm:"not null"`
	ModelKind       string    `json:"model_kind" gorm:"type:varchar(50)"`
	Cached          bool      `json:"cached" gorm:"default:false"`
	LatencyMs       int64     `json:"latency_ms"`
	RequestID       string    `json:"request_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM
func (Verdict) TableName() string {
	return "verdicts"
}

// NewVerdict creates a new Verdict for text
func NewVerdict(text string, isSpam bool, confidence, spamProbability float64) *Verdict {
	label := LabelHam
	if isSpam {
		label = LabelSpam
	}
	return &Verdict{
		ID:              uuid.New(),
		TextSHA256:      TextDigest(text),
		TextLength:      len([]rune(text)),
		IsSpam:          isSpam,
		Label:           label,
		Confidence:      confidence,
		SpamProbability: spamProbability,
	}
}

// TextDigest returns the hex SHA-256 of text
func TextDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CacheKey scopes a text digest to the artifacts that classified it, so a
// verdict cached under one model is never served for another.
func CacheKey(artifactDigest, textDigest string) string {
	return artifactDigest + ":" + textDigest
}

// VerdictFilter narrows verdict listings
type VerdictFilter struct {
	// IsSpam restricts results to one label when set.
	IsSpam *bool
	Since  *time.Time
}

// VerdictStats summarizes recorded verdicts
type VerdictStats struct {
	Total     int64 `json:"total"`
	SpamCount int64 `json:"spam_count"`
	HamCount  int64 `json:"ham_count"`
}

// SpamRate returns the share of spam verdicts
func (s *VerdictStats) SpamRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.SpamCount) / float64(s.Total)
}
