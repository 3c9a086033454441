// Package expr defines the native expression representation used by the
// pushdown conversion layer.
//
// Expressions are immutable trees of pointer nodes behind a sealed Expression
// interface. Use type assertions or type switches to access specific node
// data:
//
//	switch node := e.(type) {
//	case *expr.Column:
//	    fmt.Println("column", node.Name)
//	case *expr.Comparison:
//	    fmt.Println("compare", node.Op)
//	}
package expr

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// CompareOp identifies a binary comparison operator.
type CompareOp string

const (
	CompareEqual        CompareOp = "="
	CompareNotEqual     CompareOp = "<>"
	CompareLess         CompareOp = "<"
	CompareGreater      CompareOp = ">"
	CompareLessEqual    CompareOp = "<="
	CompareGreaterEqual CompareOp = ">="
)

// ConjunctionOp identifies a boolean conjunction operator.
type ConjunctionOp string

const (
	ConjunctionAnd ConjunctionOp = "AND"
	ConjunctionOr  ConjunctionOp = "OR"
)

// Expression is the interface implemented by all native expression nodes.
type Expression interface {
	// String renders the expression for diagnostics.
	String() string

	// exprNode is a marker method to prevent external implementation.
	exprNode()
}

// Column references a field of the input relation by name. Relation is the
// optional table qualifier; the conversion layer returns unqualified columns
// to callers.
type Column struct {
	Relation string
	Name     string
}

// Literal is a constant value with its Arrow type. A nil Value is a typed
// NULL.
type Literal struct {
	Value any
	Type  arrow.DataType
}

// Comparison is a binary comparison between two expressions.
type Comparison struct {
	Op    CompareOp
	Left  Expression
	Right Expression
}

// Conjunction is an AND/OR over two or more children.
type Conjunction struct {
	Op       ConjunctionOp
	Children []Expression
}

// Not negates a boolean expression.
type Not struct {
	Input Expression
}

// IsNull tests an expression for NULL; Negated selects IS NOT NULL.
type IsNull struct {
	Input   Expression
	Negated bool
}

// Cast converts an expression to a target Arrow type.
type Cast struct {
	Input Expression
	To    arrow.DataType
}

// InList tests membership of Value in Options.
type InList struct {
	Value   Expression
	Options []Expression
}

// CaseCheck is a single WHEN...THEN pair in a Case expression.
type CaseCheck struct {
	When Expression
	Then Expression
}

// Case is CASE WHEN ... THEN ... ELSE ... END. Else is required.
type Case struct {
	Checks []CaseCheck
	Else   Expression
}

// Function is a scalar function call that has no dedicated node kind.
// Return is the declared result type, required for output type inference.
type Function struct {
	Name   string
	Args   []Expression
	Return arrow.DataType
}

func (*Column) exprNode()      {}
func (*Literal) exprNode()     {}
func (*Comparison) exprNode()  {}
func (*Conjunction) exprNode() {}
func (*Not) exprNode()         {}
func (*IsNull) exprNode()      {}
func (*Cast) exprNode()        {}
func (*InList) exprNode()      {}
func (*Case) exprNode()        {}
func (*Function) exprNode()    {}
