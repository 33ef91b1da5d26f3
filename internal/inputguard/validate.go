package inputguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmpty      = errors.New("text is required")
	ErrTooShort   = errors.New("text is too short")
	ErrTooLong    = errors.New("text is too long")
	ErrSuspicious = errors.New("text contains markup or script content")
)

// Limits bound a submission. MinLength applies to trimmed text, MaxLength to
// the text as sent.
type Limits struct {
	MinLength int
	MaxLength int
}

var (
	ResumeLimits         = Limits{MinLength: 200, MaxLength: 10000}
	JobDescriptionLimits = Limits{MinLength: 100, MaxLength: 10000}
)

// NewGuard returns a Guard sized to the limit's maximum.
func (l Limits) NewGuard() (*Guard, error) {
	return New(l.MaxLength)
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[\s\S]*?>[\s\S]*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe[\s\S]*?>`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)<embed[\s\S]*?>`),
	regexp.MustCompile(`(?i)<object[\s\S]*?>`),
}

type ValidationError struct {
	Field string
	Limit int
	Err   error
}

func (e *ValidationError) Error() string {
	switch e.Err {
	case ErrTooShort:
		return fmt.Sprintf("%s: %v (minimum %d characters)", e.Field, e.Err, e.Limit)
	case ErrTooLong:
		return fmt.Sprintf("%s: %v (maximum %d characters)", e.Field, e.Err, e.Limit)
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ContainsSuspiciousContent reports markup that has no place in plain-text
// resumes or job descriptions.
func ContainsSuspiciousContent(text string) bool {
	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Field is one named text submitted for analysis.
type Field struct {
	Name   string
	Text   string
	Limits Limits
}

// Validate checks a single submission: blank, suspicious markup, too short,
// too long.
func Validate(field, text string, limits Limits) error {
	return ValidateAll(Field{Name: field, Text: text, Limits: limits})
}

// ValidateAll runs each check over every field before moving on to the next
// check, so with several bad fields the earliest failing stage is reported.
func ValidateAll(fields ...Field) error {
	for _, check := range []func(Field) error{checkBlank, checkSuspicious, checkMin, checkMax} {
		for _, f := range fields {
			if err := check(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkBlank(f Field) error {
	if strings.TrimSpace(f.Text) == "" {
		return &ValidationError{Field: f.Name, Err: ErrEmpty}
	}
	return nil
}

func checkSuspicious(f Field) error {
	if ContainsSuspiciousContent(f.Text) {
		return &ValidationError{Field: f.Name, Err: ErrSuspicious}
	}
	return nil
}

func checkMin(f Field) error {
	minLen := f.Limits.MinLength
	if minLen > 0 && utf8.RuneCountInString(strings.TrimSpace(f.Text)) < minLen {
		return &ValidationError{Field: f.Name, Limit: minLen, Err: ErrTooShort}
	}
	return nil
}

func checkMax(f Field) error {
	maxLen := f.Limits.MaxLength
	if maxLen > 0 && utf8.RuneCountInString(f.Text) > maxLen {
		return &ValidationError{Field: f.Name, Limit: maxLen, Err: ErrTooLong}
	}
	return nil
}
