package fact

import (
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"
)

// MaxTextLength is the maximum number of characters in a fact's text.
const MaxTextLength = 200

var (
	// ErrTextLength indicates empty text or text over MaxTextLength.
	ErrTextLength = errors.New("text must be between 1 and 200 characters")
	// ErrSource indicates a source that is not an absolute http(s) URL.
	ErrSource = errors.New("source must be an absolute http or https URL")
	// ErrCategory indicates a missing or unknown category.
	ErrCategory = errors.New("category is required")
)

// Candidate is an unvalidated fact as typed into the submission form.
type Candidate struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// ValidFact is a candidate that passed Validate. Only Validate creates one
// from user input; the zero value is not valid.
type ValidFact struct {
	text     string
	source   string
	category string
}

func (v ValidFact) Text() string     { return v.text }
func (v ValidFact) Source() string   { return v.source }
func (v ValidFact) Category() string { return v.category }

// ValidationError reports the first rule a candidate failed.
type ValidationError struct {
	Field  string // "text", "source" or "category"
	Reason error  // ErrTextLength, ErrSource or ErrCategory
	Detail string // optional context, e.g. the parse failure
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid %s: %v (%s)", e.Field, e.Reason, e.Detail)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Validate checks a candidate and returns the first failing rule.
//
// Text length is counted in code points on the raw string: no trimming is
// applied, so whitespace-only text of valid length is accepted. Category
// membership in the category table is left to the caller.
func Validate(c Candidate) (ValidFact, error) {
	n := utf8.RuneCountInString(c.Text)
	if n == 0 || n > MaxTextLength {
		return ValidFact{}, &ValidationError{
			Field:  ColumnText,
			Reason: ErrTextLength,
			Detail: fmt.Sprintf("got %d", n),
		}
	}

	if err := validateSource(c.Source); err != nil {
		return ValidFact{}, err
	}

	if c.Category == "" {
		return ValidFact{}, &ValidationError{Field: ColumnCategory, Reason: ErrCategory}
	}

	return ValidFact{text: c.Text, source: c.Source, category: c.Category}, nil
}

func validateSource(source string) error {
	u, err := url.Parse(source)
	if err != nil {
		return &ValidationError{Field: ColumnSource, Reason: ErrSource, Detail: err.Error()}
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: ColumnSource, Reason: ErrSource, Detail: fmt.Sprintf("scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ValidationError{Field: ColumnSource, Reason: ErrSource, Detail: "missing host"}
	}
	return nil
}

// Remaining returns how many characters may still be typed into text.
// It goes negative once the limit is exceeded.
func Remaining(text string) int {
	return MaxTextLength - utf8.RuneCountInString(text)
}
