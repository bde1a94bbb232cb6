package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// ErrBadParams indicates query parameters the facade cannot translate.
var ErrBadParams = errors.New("httpapi: bad query parameters")

const (
	paramOrder  = "order"
	paramLimit  = "limit"
	paramSelect = "select"
	opEq        = "eq."
)

// parseFilter reads column=eq.value pairs. Reserved keys are skipped.
func parseFilter(values url.Values) (queryir.Predicate, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []queryir.Predicate
	for _, key := range keys {
		switch key {
		case paramOrder, paramLimit, paramSelect:
			continue
		}
		if !isColumn(key) {
			return nil, fmt.Errorf("%w: unknown column %q", ErrBadParams, key)
		}
		for _, raw := range values[key] {
			v, ok := strings.CutPrefix(raw, opEq)
			if !ok {
				return nil, fmt.Errorf("%w: %s only supports eq", ErrBadParams, key)
			}
			typed, err := typedValue(key, v)
			if err != nil {
				return nil, err
			}
			preds = append(preds, queryir.Eq(key, typed))
		}
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return queryir.And{Predicates: preds}, nil
	}
}

// parseSelect reads a list request: filters, order=col.desc,col2 and limit.
func parseSelect(values url.Values) (queryir.Select, error) {
	q := queryir.Select{From: factsTable}

	filter, err := parseFilter(values)
	if err != nil {
		return q, err
	}
	q.Filter = filter

	if order := values.Get(paramOrder); order != "" {
		for _, term := range strings.Split(order, ",") {
			field, dir, _ := strings.Cut(term, ".")
			if !isColumn(field) {
				return q, fmt.Errorf("%w: cannot order by %q", ErrBadParams, field)
			}
			o := queryir.Order{Field: field}
			switch dir {
			case "", "asc":
			case "desc":
				o.Descending = true
			default:
				return q, fmt.Errorf("%w: bad order direction %q", ErrBadParams, dir)
			}
			q.OrderBy = append(q.OrderBy, o)
		}
	}

	if limit := values.Get(paramLimit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: bad limit %q", ErrBadParams, limit)
		}
		q.Limit = n
	}
	return q, nil
}

// encodeFilter is the inverse of parseFilter.
func encodeFilter(values url.Values, p queryir.Predicate) {
	for _, eq := range queryir.Conjuncts(p) {
		values.Add(eq.Field, opEq+fmt.Sprint(eq.Value))
	}
}

// encodeSelect is the inverse of parseSelect.
func encodeSelect(q queryir.Select) url.Values {
	values := url.Values{}
	values.Set(paramSelect, "*")
	encodeFilter(values, q.Filter)
	if len(q.OrderBy) > 0 {
		terms := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			terms = append(terms, o.Field+"."+dir)
		}
		values.Set(paramOrder, strings.Join(terms, ","))
	}
	if q.Limit > 0 {
		values.Set(paramLimit, strconv.Itoa(q.Limit))
	}
	return values
}

func isColumn(name string) bool {
	for _, c := range fact.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func typedValue(column, raw string) (any, error) {
	switch column {
	case fact.ColumnVotesInteresting, fact.ColumnVotesMindblowing, fact.ColumnVotesFalse, fact.ColumnCreatedIn:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrBadParams, column)
		}
		return n, nil
	default:
		return raw, nil
	}
}
