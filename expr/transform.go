package expr

// TransformFunc rewrites a single node. It may return the node unchanged, a
// replacement node, or an error that aborts the whole transform.
type TransformFunc func(Expression) (Expression, error)

// Transform rewrites an expression tree bottom-up: children are transformed
// first, then fn is applied to the (possibly rebuilt) node. The input tree is
// never mutated; rebuilt nodes are fresh allocations.
func Transform(e Expression, fn TransformFunc) (Expression, error) {
	if e == nil {
		return nil, nil
	}
	rebuilt, err := transformChildren(e, fn)
	if err != nil {
		return nil, err
	}
	return fn(rebuilt)
}

func transformChildren(e Expression, fn TransformFunc) (Expression, error) {
	switch node := e.(type) {
	case *Column, *Literal:
		return e, nil
	case *Comparison:
		left, err := Transform(node.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := Transform(node.Right, fn)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: node.Op, Left: left, Right: right}, nil
	case *Conjunction:
		children, err := transformAll(node.Children, fn)
		if err != nil {
			return nil, err
		}
		return &Conjunction{Op: node.Op, Children: children}, nil
	case *Not:
		input, err := Transform(node.Input, fn)
		if err != nil {
			return nil, err
		}
		return &Not{Input: input}, nil
	case *IsNull:
		input, err := Transform(node.Input, fn)
		if err != nil {
			return nil, err
		}
		return &IsNull{Input: input, Negated: node.Negated}, nil
	case *Cast:
		input, err := Transform(node.Input, fn)
		if err != nil {
			return nil, err
		}
		return &Cast{Input: input, To: node.To}, nil
	case *InList:
		value, err := Transform(node.Value, fn)
		if err != nil {
			return nil, err
		}
		options, err := transformAll(node.Options, fn)
		if err != nil {
			return nil, err
		}
		return &InList{Value: value, Options: options}, nil
	case *Case:
		checks := make([]CaseCheck, len(node.Checks))
		for i, check := range node.Checks {
			when, err := Transform(check.When, fn)
			if err != nil {
				return nil, err
			}
			then, err := Transform(check.Then, fn)
			if err != nil {
				return nil, err
			}
			checks[i] = CaseCheck{When: when, Then: then}
		}
		elseExpr, err := Transform(node.Else, fn)
		if err != nil {
			return nil, err
		}
		return &Case{Checks: checks, Else: elseExpr}, nil
	case *Function:
		args, err := transformAll(node.Args, fn)
		if err != nil {
			return nil, err
		}
		return &Function{Name: node.Name, Args: args, Return: node.Return}, nil
	default:
		return e, nil
	}
}

func transformAll(exprs []Expression, fn TransformFunc) ([]Expression, error) {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		transformed, err := Transform(e, fn)
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}
