// Package category holds the fixed table of fact categories and their
// display colors.
//
// The table is declared in categories.cue and checked against the
// #Category schema when it is loaded, so a malformed name or color fails
// at startup rather than at render time.
package category

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// All is the pseudo-category selecting every fact. It is not a table entry.
const All = "all"

// ErrNotFound indicates a name that is not in the table.
var ErrNotFound = errors.New("category: not found")

//go:embed categories.cue
var tableSource []byte

// Category is a named bucket with its display color.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Table is an immutable, ordered set of categories.
type Table struct {
	ordered []Category
	byName  map[string]Category
}

// Parse evaluates a CUE document declaring a `categories` list and returns
// the resulting table. Duplicate names are rejected.
func Parse(src []byte) (*Table, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename("categories.cue"))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	list := value.LookupPath(cue.ParsePath("categories"))
	if !list.Exists() {
		return nil, fmt.Errorf("category: categories list is required")
	}
	if err := list.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var ordered []Category
	if err := list.Decode(&ordered); err != nil {
		return nil, formatCUEError(err)
	}

	t := &Table{
		ordered: ordered,
		byName:  make(map[string]Category, len(ordered)),
	}
	for _, c := range ordered {
		if c.Name == All {
			return nil, fmt.Errorf("category: %q is reserved", All)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("category: duplicate name %q", c.Name)
		}
		t.byName[c.Name] = c
	}
	return t, nil
}

// Lookup returns the category with the given name.
func (t *Table) Lookup(name string) (Category, error) {
	c, ok := t.byName[name]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

// All returns the categories in table order. The slice is a copy.
func (t *Table) All() []Category {
	out := make([]Category, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Names returns the category names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.ordered))
	for i, c := range t.ordered {
		names[i] = c.Name
	}
	return names
}

// IsSelectable reports whether name may be used as a list filter: either
// All or a table member.
func (t *Table) IsSelectable(name string) bool {
	if name == All {
		return true
	}
	_, ok := t.byName[name]
	return ok
}

var upper = cases.Upper(language.Und)

// Label returns the upper-cased label shown in the category picker.
func Label(name string) string {
	return upper.String(name)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded table. It panics if the embedded document
// is invalid, which is a build defect.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(tableSource)
		if err != nil {
			panic(fmt.Sprintf("category: embedded table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Lookup finds name in the embedded table.
func Lookup(name string) (Category, error) {
	return Default().Lookup(name)
}

// List returns the embedded table in order.
func List() []Category {
	return Default().All()
}

// formatCUEError keeps the first CUE error, prefixed with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("category: %w", err)
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return fmt.Errorf("category: %s:%d:%d: %v", pos.Filename(), pos.Line(), pos.Column(), first)
	}
	return fmt.Errorf("category: %v", first)
}
