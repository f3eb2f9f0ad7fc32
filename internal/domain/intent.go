package domain

// Intent classification categories produced by the keyword fallback.
const (
	IntentCategoryKeywordMatch = "keyword_match"
	IntentCategoryDefault      = "default"
)

// Fixed confidence levels for the keyword fallback. Keyword matching is a
// weaker signal than an AI judgement, so both sit below typical AI scores.
const (
	KeywordMatchConfidence = 0.7
	KeywordMissConfidence  = 0.6
)

// IntentClassification is the judgement whether a message needs the CLI
// execution layer. Transient; optionally cached by raw message text within a
// single process lifetime.
type IntentClassification struct {
	NeedsCLI   bool    `json:"needs_cli"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Category   string  `json:"category"`
}
