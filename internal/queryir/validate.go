package queryir

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidQuery is wrapped by every error Validate returns.
	ErrInvalidQuery = errors.New("queryir: invalid query")
	// ErrNoMatch is wrapped by backends when an update filter matched no row.
	ErrNoMatch = errors.New("queryir: no row matched filter")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks structural rules shared by all backends:
//  1. Table and column names are plain identifiers (safe to splice into SQL)
//  2. Values are string, int, int64 or bool
//  3. Limits are non-negative
//  4. Inserts and updates assign at least one column, each at most once
//  5. Updates carry a filter with at least one Equals leaf
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	switch query := q.(type) {
	case Select:
		return validateSelect(query)
	case *Select:
		return validateSelect(*query)
	case Insert:
		return validateInsert(query)
	case *Insert:
		return validateInsert(*query)
	case Update:
		return validateUpdate(query)
	case *Update:
		return validateUpdate(*query)
	case nil:
		return fmt.Errorf("%w: nil query", ErrInvalidQuery)
	default:
		return fmt.Errorf("%w: unsupported query type %T", ErrInvalidQuery, q)
	}
}

func validateSelect(s Select) error {
	if err := checkIdent("table", s.From); err != nil {
		return err
	}
	if err := checkColumns(s.Columns); err != nil {
		return err
	}
	if err := validatePredicate(s.Filter); err != nil {
		return err
	}
	for _, o := range s.OrderBy {
		if err := checkIdent("order field", o.Field); err != nil {
			return err
		}
	}
	if s.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, s.Limit)
	}
	return nil
}

func validateInsert(ins Insert) error {
	if err := checkIdent("table", ins.Into); err != nil {
		return err
	}
	if err := checkAssignments(ins.Values); err != nil {
		return err
	}
	return checkColumns(ins.Returning)
}

func validateUpdate(u Update) error {
	if err := checkIdent("table", u.Table); err != nil {
		return err
	}
	if err := checkAssignments(u.Set); err != nil {
		return err
	}
	if len(Conjuncts(u.Filter)) == 0 {
		return fmt.Errorf("%w: update requires a filter", ErrInvalidQuery)
	}
	if err := validatePredicate(u.Filter); err != nil {
		return err
	}
	return checkColumns(u.Returning)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return validateEquals(pred)
	case *Equals:
		return validateEquals(*pred)
	case And:
		return validateAnd(pred)
	case *And:
		return validateAnd(*pred)
	default:
		return fmt.Errorf("%w: unsupported predicate type %T", ErrInvalidQuery, p)
	}
}

func validateEquals(eq Equals) error {
	if err := checkIdent("filter field", eq.Field); err != nil {
		return err
	}
	return checkValue(eq.Field, eq.Value)
}

func validateAnd(and And) error {
	for _, sub := range and.Predicates {
		if err := validatePredicate(sub); err != nil {
			return err
		}
	}
	return nil
}

func checkAssignments(as []Assignment) error {
	if len(as) == 0 {
		return fmt.Errorf("%w: no columns assigned", ErrInvalidQuery)
	}
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		if err := checkIdent("column", a.Field); err != nil {
			return err
		}
		if seen[a.Field] {
			return fmt.Errorf("%w: column %q assigned twice", ErrInvalidQuery, a.Field)
		}
		seen[a.Field] = true
		if err := checkValue(a.Field, a.Value); err != nil {
			return err
		}
	}
	return nil
}

func checkColumns(cols []string) error {
	for _, c := range cols {
		if err := checkIdent("column", c); err != nil {
			return err
		}
	}
	return nil
}

func checkIdent(kind, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: bad %s name %q", ErrInvalidQuery, kind, name)
	}
	return nil
}

func checkValue(field string, v any) error {
	switch v.(type) {
	case string, int, int64, bool:
		return nil
	default:
		return fmt.Errorf("%w: field %q has unsupported value type %T", ErrInvalidQuery, field, v)
	}
}
