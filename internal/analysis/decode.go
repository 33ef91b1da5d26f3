package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrIncomplete = errors.New("incomplete analysis result")

// UpstreamError is returned by Decode when the generator reported its own
// failure alongside a placeholder result.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "analysis failed upstream: " + e.Message
}

// CleanJSON strips the Markdown code fence LLMs like to wrap JSON in.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

type wireResult struct {
	Error string `json:"error"`

	MatchScore      *float64 `json:"matchScore"`
	MatchScoreSnake *float64 `json:"match_score"`

	ScoreBreakdown      *wireBreakdown `json:"scoreBreakdown"`
	ScoreBreakdownSnake *wireBreakdown `json:"score_breakdown"`

	MissingKeywords      *[]wireKeyword `json:"missingKeywords"`
	MissingKeywordsSnake *[]wireKeyword `json:"missing_keywords"`

	ImprovementSuggestions      []string `json:"improvementSuggestions"`
	ImprovementSuggestionsSnake []string `json:"improvement_suggestions"`
}

type wireBreakdown struct {
	KeywordOverlap      *float64 `json:"keywordOverlap"`
	KeywordOverlapSnake *float64 `json:"keyword_overlap"`
	SemanticMatch       *float64 `json:"semanticMatch"`
	SemanticMatchSnake  *float64 `json:"semantic_match"`
	Structure           *float64 `json:"structure"`
}

type wireKeyword struct {
	Keyword  string   `json:"keyword,omitempty"`
	Word     string   `json:"word,omitempty"`
	Priority Priority `json:"priority"`
}

func pick[T any](camel, snake *T) *T {
	if camel != nil {
		return camel
	}
	return snake
}

// Decode parses a raw analysis, optionally fenced, in either camelCase or
// snake_case. Match score, score breakdown and missing keywords are required;
// absent suggestions decode as an empty list.
func Decode(data []byte) (RawResult, error) {
	var w wireResult
	if err := json.Unmarshal([]byte(CleanJSON(string(data))), &w); err != nil {
		return RawResult{}, fmt.Errorf("invalid analysis json: %w", err)
	}
	if w.Error != "" {
		return RawResult{}, &UpstreamError{Message: w.Error}
	}

	score := pick(w.MatchScore, w.MatchScoreSnake)
	if score == nil {
		return RawResult{}, fmt.Errorf("%w: missing match score", ErrIncomplete)
	}
	breakdown := pick(w.ScoreBreakdown, w.ScoreBreakdownSnake)
	if breakdown == nil {
		return RawResult{}, fmt.Errorf("%w: missing score breakdown", ErrIncomplete)
	}
	keywords := pick(w.MissingKeywords, w.MissingKeywordsSnake)
	if keywords == nil {
		return RawResult{}, fmt.Errorf("%w: missing keywords list", ErrIncomplete)
	}

	overlap := pick(breakdown.KeywordOverlap, breakdown.KeywordOverlapSnake)
	semantic := pick(breakdown.SemanticMatch, breakdown.SemanticMatchSnake)
	switch {
	case overlap == nil:
		return RawResult{}, fmt.Errorf("%w: missing keyword overlap score", ErrIncomplete)
	case semantic == nil:
		return RawResult{}, fmt.Errorf("%w: missing semantic match score", ErrIncomplete)
	case breakdown.Structure == nil:
		return RawResult{}, fmt.Errorf("%w: missing structure score", ErrIncomplete)
	}

	raw := RawResult{
		MatchScore: *score,
		ScoreBreakdown: RawScoreBreakdown{
			KeywordOverlap: *overlap,
			SemanticMatch:  *semantic,
			Structure:      *breakdown.Structure,
		},
		MissingKeywords:        make([]RawMissingKeyword, len(*keywords)),
		ImprovementSuggestions: w.ImprovementSuggestions,
	}
	for i, k := range *keywords {
		raw.MissingKeywords[i] = RawMissingKeyword(k)
	}
	if raw.ImprovementSuggestions == nil {
		raw.ImprovementSuggestions = w.ImprovementSuggestionsSnake
	}
	if raw.ImprovementSuggestions == nil {
		raw.ImprovementSuggestions = []string{}
	}
	return raw, nil
}

type wireBreakdownOut struct {
	KeywordOverlap float64 `json:"keywordOverlap"`
	SemanticMatch  float64 `json:"semanticMatch"`
	Structure      float64 `json:"structure"`
}

type wireResultOut struct {
	MatchScore             float64          `json:"matchScore"`
	ScoreBreakdown         wireBreakdownOut `json:"scoreBreakdown"`
	MissingKeywords        []wireKeyword    `json:"missingKeywords"`
	ImprovementSuggestions []string         `json:"improvementSuggestions"`
}

// MarshalJSON writes the camelCase form of the backend contract.
func (r RawResult) MarshalJSON() ([]byte, error) {
	out := wireResultOut{
		MatchScore:             r.MatchScore,
		ScoreBreakdown:         wireBreakdownOut(r.ScoreBreakdown),
		MissingKeywords:        make([]wireKeyword, len(r.MissingKeywords)),
		ImprovementSuggestions: r.ImprovementSuggestions,
	}
	for i, k := range r.MissingKeywords {
		out.MissingKeywords[i] = wireKeyword(k)
	}
	if out.ImprovementSuggestions == nil {
		out.ImprovementSuggestions = []string{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON applies the same rules as Decode.
func (r *RawResult) UnmarshalJSON(data []byte) error {
	raw, err := Decode(data)
	if err != nil {
		return err
	}
	*r = raw
	return nil
}
