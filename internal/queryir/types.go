package queryir

// Query is a request against one table.
//
// Sealed: only Select, Insert and Update implement it.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
//
// Sealed: only Equals and And implement it.
type Predicate interface {
	predicateNode()
}

// Select reads rows from a table.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order_by>, id ASC LIMIT <limit>
//
// An empty Columns list selects every column. Limit 0 means no limit.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	Limit   int
}

func (Select) queryNode() {}

// Order is one ORDER BY term.
type Order struct {
	Field      string
	Descending bool
}

// Assignment sets one column to a literal value.
type Assignment struct {
	Field string
	Value any
}

// Insert adds exactly one row and returns it as stored. Columns not listed
// in Values take the table defaults.
type Insert struct {
	Into      string
	Values    []Assignment
	Returning []string
}

func (Insert) queryNode() {}

// Update changes the rows matching Filter and returns the updated row.
// Filter is mandatory: unfiltered updates are rejected by Validate.
type Update struct {
	Table     string
	Set       []Assignment
	Filter    Predicate
	Returning []string
}

func (Update) queryNode() {}

// Equals is true when the named field equals Value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And is true when every sub-predicate is true. Empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Eq is shorthand for an Equals predicate.
func Eq(field string, value any) Equals {
	return Equals{Field: field, Value: value}
}

// Conjuncts flattens a predicate tree of nested And nodes into its Equals
// leaves, in order. A nil predicate yields nil.
func Conjuncts(p Predicate) []Equals {
	var out []Equals
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case nil:
		case Equals:
			out = append(out, pred)
		case *Equals:
			if pred != nil {
				out = append(out, *pred)
			}
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		case *And:
			if pred != nil {
				for _, sub := range pred.Predicates {
					walk(sub)
				}
			}
		}
	}
	walk(p)
	return out
}

// Lookup returns the value Filter requires for field, if an Equals leaf on
// that field exists.
func Lookup(p Predicate, field string) (any, bool) {
	for _, eq := range Conjuncts(p) {
		if eq.Field == field {
			return eq.Value, true
		}
	}
	return nil, false
}
