// Package plan is the planning-engine side of the pushdown conversion layer.
//
// It provides the three narrow capabilities the conversion core consumes:
// registration of named empty in-memory relations on a Session, conversion of
// a single-relation Substrait plan into native expressions (FromPlan), and
// production of a Substrait ExtendedExpression from a native expression
// (ToExtendedExpression). Sessions are cheap, per-call values with no shared
// state; concurrent conversions each construct their own.
package plan

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/pushdown-go/errs"
)

// Session binds relation names to schemas for one plan conversion.
type Session struct {
	tables map[string]*arrow.Schema
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{tables: make(map[string]*arrow.Schema)}
}

// RegisterEmptyTable binds name to an empty in-memory relation carrying the
// given schema. The relation has no rows; it exists only so plans can resolve
// column references against it.
func (s *Session) RegisterEmptyTable(name string, schema *arrow.Schema) error {
	if name == "" {
		return errs.InvalidInput("table name cannot be empty")
	}
	if schema == nil {
		return errs.InvalidInput("table schema cannot be nil")
	}
	if _, ok := s.tables[name]; ok {
		return errs.InvalidInputf("table %q is already registered", name)
	}
	s.tables[name] = schema
	return nil
}

func (s *Session) lookupTable(name string) (*arrow.Schema, bool) {
	schema, ok := s.tables[name]
	return schema, ok
}
