package category

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Order(t *testing.T) {
	names := Default().Names()
	assert.Equal(t, []string{
		"technology", "science", "finance", "society",
		"entertainment", "health", "history", "news",
	}, names)
}

func TestLookup(t *testing.T) {
	c, err := Lookup("science")
	require.NoError(t, err)
	assert.Equal(t, Category{Name: "science", Color: "#16a34a"}, c)

	_, err = Lookup("sport")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Lookup(All)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAll_ReturnsCopy(t *testing.T) {
	list := List()
	list[0].Color = "#000000"

	c, err := Lookup("technology")
	require.NoError(t, err)
	assert.Equal(t, "#3b82f6", c.Color)
	assert.Equal(t, "#3b82f6", List()[0].Color)
}

func TestIsSelectable(t *testing.T) {
	tbl := Default()
	assert.True(t, tbl.IsSelectable("all"))
	assert.True(t, tbl.IsSelectable("news"))
	assert.False(t, tbl.IsSelectable("News"))
	assert.False(t, tbl.IsSelectable(""))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "TECHNOLOGY", Label("technology"))
	assert.Equal(t, "ENTERTAINMENT", Label("entertainment"))
}

func TestParse_RejectsBadColor(t *testing.T) {
	src := `
#Category: {
	name:  =~"^[a-z][a-z0-9-]*$"
	color: =~"^#[0-9a-f]{6}$"
}
categories: [...#Category] & [{name: "science", color: "green"}]
`
	_, err := Parse([]byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category:")
}

func TestParse_RejectsDuplicates(t *testing.T) {
	src := `categories: [{name: "news", color: "#000000"}, {name: "news", color: "#ffffff"}]`
	_, err := Parse([]byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestParse_RejectsReservedName(t *testing.T) {
	_, err := Parse([]byte(`categories: [{name: "all", color: "#000000"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestParse_RequiresList(t *testing.T) {
	_, err := Parse([]byte(`other: 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}
