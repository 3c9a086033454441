package expr

import (
	"fmt"
	"strings"
)

func (c *Column) String() string {
	if c.Relation != "" {
		return c.Relation + "." + c.Name
	}
	return c.Name
}

func (l *Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}
	switch v := l.Value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *Comparison) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

func (c *Conjunction) String() string {
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, " "+string(c.Op)+" ") + ")"
}

func (n *Not) String() string {
	return "NOT (" + n.Input.String() + ")"
}

func (n *IsNull) String() string {
	if n.Negated {
		return n.Input.String() + " IS NOT NULL"
	}
	return n.Input.String() + " IS NULL"
}

func (c *Cast) String() string {
	return "CAST(" + c.Input.String() + " AS " + c.To.String() + ")"
}

func (l *InList) String() string {
	parts := make([]string, len(l.Options))
	for i, opt := range l.Options {
		parts[i] = opt.String()
	}
	return l.Value.String() + " IN (" + strings.Join(parts, ", ") + ")"
}

func (c *Case) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, check := range c.Checks {
		sb.WriteString(" WHEN ")
		sb.WriteString(check.When.String())
		sb.WriteString(" THEN ")
		sb.WriteString(check.Then.String())
	}
	if c.Else != nil {
		sb.WriteString(" ELSE ")
		sb.WriteString(c.Else.String())
	}
	sb.WriteString(" END")
	return sb.String()
}

func (f *Function) String() string {
	parts := make([]string, len(f.Args))
	for i, arg := range f.Args {
		parts[i] = arg.String()
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}
