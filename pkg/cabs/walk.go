package cabs

// Inspect traverses the tree rooted at n in depth-first order, calling f
// for every node. If f returns false the children of that node are skipped.
// Goto targets and Break/Continue targets are references, not children.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Unary:
		inspectExpr(n.X, f)
	case *Binary:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *Assign:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *Cast:
		inspectExpr(n.X, f)
	case *Member:
		inspectExpr(n.X, f)
	case *Ternary:
		inspectExpr(n.Cond, f)
		inspectExpr(n.Then, f)
		inspectExpr(n.Else, f)
	case *Call:
		inspectExpr(n.Func, f)
		for _, a := range n.Args {
			inspectExpr(a, f)
		}
	case *Index:
		inspectExpr(n.Array, f)
		inspectExpr(n.Index, f)
	case *Sizeof:
		inspectExpr(n.X, f)
	case *FuncLit:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *InitList:
		for _, it := range n.Items {
			for _, d := range it.Designators {
				inspectExpr(d.Index, f)
			}
			inspectExpr(it.Value, f)
		}
	case *Compound:
		for _, s := range n.Items {
			inspectStmt(s, f)
		}
	case *If:
		inspectExpr(n.Cond, f)
		inspectStmt(n.Then, f)
		inspectStmt(n.Else, f)
	case *Switch:
		inspectExpr(n.Cond, f)
		inspectStmt(n.Body, f)
	case *Case:
		inspectStmt(n.Body, f)
	case *Default:
		inspectStmt(n.Body, f)
	case *While:
		inspectExpr(n.Cond, f)
		inspectStmt(n.Body, f)
	case *DoWhile:
		inspectStmt(n.Body, f)
		inspectExpr(n.Cond, f)
	case *For:
		inspectStmt(n.Init, f)
		inspectExpr(n.Cond, f)
		inspectExpr(n.Post, f)
		inspectStmt(n.Body, f)
	case *Return:
		inspectExpr(n.X, f)
	case *ExprStmt:
		inspectExpr(n.X, f)
	case *Decl:
		inspectExpr(n.Init, f)
	case *GlobalDecl:
		inspectExpr(n.Init, f)
	case *FuncDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

func inspectStmt(s Stmt, f func(Node) bool) {
	if s != nil {
		Inspect(s, f)
	}
}
