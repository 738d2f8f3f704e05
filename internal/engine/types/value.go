// Package types holds the instruction set, value model, and error types the
// compiler and interpreter share.
package types

import "fmt"

// VarOrConst is a value that is either a literal string or a reference into
// engine memory. Textual form: "$name", "$name[i]", "literal", "literal[i]".
type VarOrConst struct {
	IsRef bool
	Name  string
	Index *int // nil means index 0
}

// IndexOrZero returns the cell index this reference targets, defaulting to 0.
func (v VarOrConst) IndexOrZero() int {
	if v.Index == nil {
		return 0
	}
	return *v.Index
}

func (v VarOrConst) String() string {
	var s string
	if v.IsRef {
		s = "$" + v.Name
	} else {
		s = v.Name
	}
	if v.Index != nil {
		s += fmt.Sprintf("[%d]", *v.Index)
	}
	return s
}

// Operator is one of the four comparison kinds a Branch instruction supports.
// Equality/inequality are string-equal over raw values; Less/LessEqual are
// lexicographic over the raw string representation — no numeric coercion.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLess
	OpLessEqual
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	default:
		return "?"
	}
}

// Compare evaluates lhs <op> rhs per the operator's lexicographic rule.
func (o Operator) Compare(lhs, rhs string) bool {
	switch o {
	case OpEqual:
		return lhs == rhs
	case OpNotEqual:
		return lhs != rhs
	case OpLess:
		return lhs < rhs
	case OpLessEqual:
		return lhs <= rhs
	default:
		return false
	}
}

// ParseOperator maps the textual comparison token used in "if" directives.
func ParseOperator(s string) (Operator, bool) {
	switch s {
	case "==":
		return OpEqual, true
	case "!=":
		return OpNotEqual, true
	case "<":
		return OpLess, true
	case "<=":
		return OpLessEqual, true
	default:
		return 0, false
	}
}

// LabelKind distinguishes the three label flavors. Only LabelOffset survives
// compilation into an emitted Goto; the others are intermediate lookup keys
// in the compiler's label table.
type LabelKind int

const (
	LabelNamed LabelKind = iota
	LabelIndexed
	LabelOffset
)

// Label is the compile-time sum type Named(string) | Indexed(int) | Offset(int).
type Label struct {
	Kind  LabelKind
	Name  string // valid when Kind == LabelNamed
	Value int    // valid when Kind == LabelIndexed or LabelOffset
}

func NamedLabel(name string) Label   { return Label{Kind: LabelNamed, Name: name} }
func IndexedLabel(idx int) Label     { return Label{Kind: LabelIndexed, Value: idx} }
func OffsetLabel(offset int) Label   { return Label{Kind: LabelOffset, Value: offset} }
func (l Label) IsOffset() bool       { return l.Kind == LabelOffset }

func (l Label) String() string {
	switch l.Kind {
	case LabelNamed:
		return l.Name
	case LabelIndexed:
		return fmt.Sprintf("@%d", l.Value)
	case LabelOffset:
		return fmt.Sprintf("#%d", l.Value)
	default:
		return "?"
	}
}

// ImageSlot is the logical layer a SetImg instruction writes to.
type ImageSlot int

const (
	SlotMain ImageSlot = iota
	SlotDate
)

func (s ImageSlot) String() string {
	if s == SlotDate {
		return "Date"
	}
	return "Main"
}
