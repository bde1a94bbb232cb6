// Package fact defines the fact record, its vote counters, and the pure
// validation applied to candidate facts before they are submitted.
package fact

import (
	"fmt"
	"strings"
)

// Column names of the remote facts table.
const (
	ColumnID               = "id"
	ColumnText             = "text"
	ColumnSource           = "source"
	ColumnCategory         = "category"
	ColumnVotesInteresting = "votesInteresting"
	ColumnVotesMindblowing = "votesMindblowing"
	ColumnVotesFalse       = "votesFalse"
	ColumnCreatedIn        = "createdIn"
)

// Columns lists every column of the facts table in canonical order.
var Columns = []string{
	ColumnID,
	ColumnText,
	ColumnSource,
	ColumnCategory,
	ColumnVotesInteresting,
	ColumnVotesMindblowing,
	ColumnVotesFalse,
	ColumnCreatedIn,
}

// Fact is a remote-owned record cached by the client.
//
// ID is assigned by the remote store and never changes afterwards.
type Fact struct {
	ID               string `json:"id" yaml:"id"`
	Text             string `json:"text" yaml:"text"`
	Source           string `json:"source" yaml:"source"`
	Category         string `json:"category" yaml:"category"`
	VotesInteresting int64  `json:"votesInteresting" yaml:"votesInteresting"`
	VotesMindblowing int64  `json:"votesMindblowing" yaml:"votesMindblowing"`
	VotesFalse       int64  `json:"votesFalse" yaml:"votesFalse"`
	CreatedIn        int    `json:"createdIn" yaml:"createdIn"`
}

// Votes returns the current value of the given counter.
func (f Fact) Votes(field VoteField) int64 {
	switch field {
	case VoteInteresting:
		return f.VotesInteresting
	case VoteMindblowing:
		return f.VotesMindblowing
	case VoteFalse:
		return f.VotesFalse
	default:
		return 0
	}
}

// VoteField identifies one of the three independent vote counters.
type VoteField int

const (
	VoteInteresting VoteField = iota + 1
	VoteMindblowing
	VoteFalse
)

// VoteFields lists the counters in display order.
var VoteFields = []VoteField{VoteInteresting, VoteMindblowing, VoteFalse}

// Column returns the remote column backing the counter.
func (v VoteField) Column() string {
	switch v {
	case VoteInteresting:
		return ColumnVotesInteresting
	case VoteMindblowing:
		return ColumnVotesMindblowing
	case VoteFalse:
		return ColumnVotesFalse
	default:
		return ""
	}
}

// Emoji returns the button glyph shown next to the counter.
func (v VoteField) Emoji() string {
	switch v {
	case VoteInteresting:
		return "👍"
	case VoteMindblowing:
		return "🤯"
	case VoteFalse:
		return "⛔️"
	default:
		return "?"
	}
}

func (v VoteField) String() string {
	switch v {
	case VoteInteresting:
		return "interesting"
	case VoteMindblowing:
		return "mindblowing"
	case VoteFalse:
		return "false"
	default:
		return fmt.Sprintf("VoteField(%d)", int(v))
	}
}

// Valid reports whether v names a known counter.
func (v VoteField) Valid() bool {
	return v >= VoteInteresting && v <= VoteFalse
}

// ParseVoteField accepts the short name ("interesting") or the column name
// ("votesInteresting"), case-insensitively.
func ParseVoteField(s string) (VoteField, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, field := range VoteFields {
		if needle == field.String() || needle == strings.ToLower(field.Column()) {
			return field, nil
		}
	}
	return 0, fmt.Errorf("unknown vote field %q: must be one of interesting, mindblowing, false", s)
}

// IsVoteColumn reports whether column is one of the vote counter columns.
func IsVoteColumn(column string) bool {
	for _, field := range VoteFields {
		if field.Column() == column {
			return true
		}
	}
	return false
}
