// Package events provides the asynchronous message coupling between the
// generation, evaluation, and tier subsystems. Delivery is at-least-once;
// consumers dedupe with the session id carried in each payload.
package events

// Topic names.
const (
	TopicDocumentRewritten   = "document.rewritten"
	TopicEvaluationCompleted = "evaluation.completed"
	TopicTierReassigned      = "tier.reassigned"
)

// DocumentRewritten is emitted when a generation session completes and its
// rewritten document has been persisted.
type DocumentRewritten struct {
	SessionID           string  `json:"sessionId"`
	AuthorID            string  `json:"authorId"`
	SourceDocumentID    string  `json:"sourceDocumentId"`
	RewrittenDocumentID string  `json:"rewrittenDocumentId"`
	WordCount           int     `json:"wordCount"`
	ConfidenceScore     float64 `json:"confidenceScore"`
}

// EvaluationCompleted is emitted after every persisted evaluation.
type EvaluationCompleted struct {
	EvaluationID     string  `json:"evaluationId"`
	AuthorID         string  `json:"authorId"`
	DocumentID       string  `json:"documentId"`
	QualityScore     float64 `json:"qualityScore"`
	ImprovementScore float64 `json:"improvementScore"`
	TierChanged      bool    `json:"tierChanged"`
}

// TierReassigned is emitted only when the bucket policy decides the
// author's tier should change. The author registry is the single writer
// that applies it.
type TierReassigned struct {
	AuthorID         string  `json:"authorId"`
	EvaluationID     string  `json:"evaluationId"`
	OldTier          string  `json:"oldTier"`
	NewTier          string  `json:"newTier"`
	QualityScore     float64 `json:"qualityScore"`
	ImprovementScore float64 `json:"improvementScore"`
}
