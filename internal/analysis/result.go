// Package analysis reconciles the AI-generated match analysis returned by the
// backend into the single shape every renderer consumes.
package analysis

// Priority is one of high, medium or low. Values outside that set are carried
// through untouched; see Valid.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// RawResult is the analysis as produced upstream. See Decode for the accepted
// JSON spellings.
type RawResult struct {
	MatchScore             float64
	ScoreBreakdown         RawScoreBreakdown
	MissingKeywords        []RawMissingKeyword
	ImprovementSuggestions []string
}

type RawScoreBreakdown struct {
	KeywordOverlap float64
	SemanticMatch  float64
	Structure      float64
}

// RawMissingKeyword carries the keyword text under either of two names; the
// generator is not consistent about which one it fills.
type RawMissingKeyword struct {
	Keyword  string
	Word     string
	Priority Priority
}

// Text resolves the keyword text, preferring Keyword over Word.
func (k RawMissingKeyword) Text() string {
	if k.Keyword != "" {
		return k.Keyword
	}
	return k.Word
}

type CanonicalResult struct {
	MatchScore      float64          `json:"matchScore"`
	Breakdown       Breakdown        `json:"breakdown"`
	MissingKeywords []MissingKeyword `json:"missingKeywords"`
	Suggestions     []string         `json:"suggestions"`
}

// Breakdown.Tone is fed from the upstream "structure" score.
type Breakdown struct {
	Keywords float64 `json:"keywords"`
	Semantic float64 `json:"semantic"`
	Tone     float64 `json:"tone"`
}

type MissingKeyword struct {
	Word     string   `json:"word"`
	Priority Priority `json:"priority"`
}

// Normalize maps a raw result onto the canonical shape. It never fails:
// keyword entries map 1:1 in order, and an entry without text becomes "".
func Normalize(raw RawResult) CanonicalResult {
	keywords := make([]MissingKeyword, len(raw.MissingKeywords))
	for i, k := range raw.MissingKeywords {
		keywords[i] = MissingKeyword{
			Word:     k.Text(),
			Priority: k.Priority,
		}
	}

	suggestions := make([]string, len(raw.ImprovementSuggestions))
	copy(suggestions, raw.ImprovementSuggestions)

	return CanonicalResult{
		MatchScore: raw.MatchScore,
		Breakdown: Breakdown{
			Keywords: raw.ScoreBreakdown.KeywordOverlap,
			Semantic: raw.ScoreBreakdown.SemanticMatch,
			Tone:     raw.ScoreBreakdown.Structure,
		},
		MissingKeywords: keywords,
		Suggestions:     suggestions,
	}
}

// Clamp returns a copy with every score limited to 0..100.
func (r RawResult) Clamp() RawResult {
	out := r
	out.MatchScore = clampScore(r.MatchScore)
	out.ScoreBreakdown = RawScoreBreakdown{
		KeywordOverlap: clampScore(r.ScoreBreakdown.KeywordOverlap),
		SemanticMatch:  clampScore(r.ScoreBreakdown.SemanticMatch),
		Structure:      clampScore(r.ScoreBreakdown.Structure),
	}
	return out
}

func clampScore(v float64) float64 {
	return max(0, min(100, v))
}
