package fact

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCandidate() Candidate {
	return Candidate{
		Text:     "Lisbon is the capital of Portugal",
		Source:   "https://en.wikipedia.org/wiki/Lisbon",
		Category: "society",
	}
}

func TestValidate_Accepts(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Candidate)
	}{
		{"baseline", func(c *Candidate) {}},
		{"single character", func(c *Candidate) { c.Text = "x" }},
		{"exactly 200 characters", func(c *Candidate) { c.Text = strings.Repeat("a", 200) }},
		{"200 multibyte characters", func(c *Candidate) { c.Text = strings.Repeat("é", 200) }},
		{"whitespace only is not trimmed", func(c *Candidate) { c.Text = "   " }},
		{"http scheme", func(c *Candidate) { c.Source = "http://example.com" }},
		{"upper case scheme", func(c *Candidate) { c.Source = "HTTPS://example.com/a?b=c" }},
		{"port and path", func(c *Candidate) { c.Source = "https://localhost:8080/x" }},
		{"category outside table", func(c *Candidate) { c.Category = "sport" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.edit(&c)

			v, err := Validate(c)
			require.NoError(t, err)
			assert.Equal(t, c.Text, v.Text())
			assert.Equal(t, c.Source, v.Source())
			assert.Equal(t, c.Category, v.Category())
		})
	}
}

func TestValidate_RejectsText(t *testing.T) {
	for _, text := range []string{"", strings.Repeat("a", 201), strings.Repeat("é", 201)} {
		c := validCandidate()
		c.Text = text

		_, err := Validate(c)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTextLength), "len=%d", len(text))

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "text", ve.Field)
	}
}

func TestValidate_RejectsSource(t *testing.T) {
	sources := []string{
		"",
		"example.com",
		"/relative/path",
		"ftp://example.com/file",
		"mailto:someone@example.com",
		"javascript:alert(1)",
		"http://",
		"https:opaque",
		"https://exa mple.com",
		"://missing-scheme",
	}

	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			c := validCandidate()
			c.Source = source

			_, err := Validate(c)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSource)
		})
	}
}

func TestValidate_RejectsEmptyCategory(t *testing.T) {
	c := validCandidate()
	c.Category = ""

	_, err := Validate(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCategory)
}

func TestValidate_ReportsFirstFailingRule(t *testing.T) {
	_, err := Validate(Candidate{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTextLength)
	assert.NotErrorIs(t, err, ErrSource)

	_, err = Validate(Candidate{Text: "ok", Source: "nope"})
	assert.ErrorIs(t, err, ErrSource)
	assert.NotErrorIs(t, err, ErrCategory)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "source", Reason: ErrSource, Detail: `scheme "ftp"`}
	assert.Equal(t, `invalid source: source must be an absolute http or https URL (scheme "ftp")`, err.Error())

	err = &ValidationError{Field: "category", Reason: ErrCategory}
	assert.Equal(t, "invalid category: category is required", err.Error())
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 200, Remaining(""))
	assert.Equal(t, 196, Remaining("Test"))
	assert.Equal(t, 199, Remaining("🤯"))
	assert.Equal(t, -1, Remaining(strings.Repeat("a", 201)))
}
