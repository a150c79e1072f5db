package ir

// freeVarCollector walks an Expr/Atom tree recording every VarRef name not
// shadowed by an enclosing Let/For/Quantified/InlineFunc-parameter binding
// introduced inside the tree being walked. Used by the builder when closing
// an InlineFunc literal over its lexical environment.
type freeVarCollector struct {
	bound map[string]int // name -> depth of shadowing binders currently open
	free  map[string]bool
	order []string
}

// FreeVariables returns the free variables of body, in first-reference
// order, given the set of names already bound by the enclosing scope (an
// InlineFunc's own parameters are passed here so they are excluded).
func FreeVariables(body Expr, alreadyBound []string) []string {
	c := &freeVarCollector{bound: map[string]int{}, free: map[string]bool{}}
	for _, n := range alreadyBound {
		c.bound[n]++
	}
	walkExpr(body, c)
	return c.order
}

func (c *freeVarCollector) use(name string) {
	if c.bound[name] > 0 {
		return
	}
	if !c.free[name] {
		c.free[name] = true
		c.order = append(c.order, name)
	}
}

func (c *freeVarCollector) push(name string) { c.bound[name]++ }
func (c *freeVarCollector) pop(name string)  { c.bound[name]-- }

func walkExpr(e Expr, c *freeVarCollector) {
	switch n := e.(type) {
	case *Let:
		walkAtom(n.Value, c)
		c.push(n.Var)
		walkExpr(n.Body, c)
		c.pop(n.Var)
	case *Return:
		walkAtom(n.Value, c)
	}
}

func walkAtom(a Atom, c *freeVarCollector) {
	switch n := a.(type) {
	case *Const, *ContextItem, *ContextPosition, *ContextSize:
		// no variables
	case *VarRef:
		c.use(n.Name)
	case *BinOp:
		walkAtom(n.Left, c)
		walkAtom(n.Right, c)
	case *UnaryOp:
		walkAtom(n.Operand, c)
	case *PathStep:
		walkAtom(n.Context, c)
		for _, p := range n.Predicates {
			walkExpr(p, c)
		}
	case *If:
		walkAtom(n.Cond, c)
		walkExpr(n.Then, c)
		walkExpr(n.Else, c)
	case *For:
		walkAtom(n.Source, c)
		c.push(n.Var)
		walkExpr(n.Body, c)
		c.pop(n.Var)
	case *Quantified:
		walkAtom(n.Source, c)
		c.push(n.Var)
		walkExpr(n.Test, c)
		c.pop(n.Var)
	case *Conversion:
		walkAtom(n.Source, c)
	case *StaticCall:
		for _, arg := range n.Args {
			walkAtom(arg, c)
		}
	case *DynamicCall:
		walkAtom(n.Fn, c)
		for _, arg := range n.Args {
			walkAtom(arg, c)
		}
	case *PartialApply:
		walkAtom(n.Fn, c)
		for _, arg := range n.Args {
			if !arg.Placeholder {
				walkAtom(arg.Value, c)
			}
		}
	case *InlineFunc:
		for _, p := range n.Params {
			c.push(p.Name)
		}
		walkExpr(n.Body, c)
		for _, p := range n.Params {
			c.pop(p.Name)
		}
	case *MapCtor:
		for _, e := range n.Entries {
			walkAtom(e.Key, c)
			walkAtom(e.Value, c)
		}
	case *ArrayCtor:
		for _, m := range n.Members {
			walkAtom(m, c)
		}
	case *Lookup:
		walkAtom(n.Target, c)
		if !n.IsWildcard {
			walkAtom(n.Key, c)
		}
	}
}
