// Package milp describes mixed-integer linear programs independently of the
// solver used to solve them.
package milp

import (
	"fmt"
	"math"
)

// VarID indexes a variable inside a Model.
type VarID int

// Domain is the value domain of a variable.
type Domain int

const (
	Continuous Domain = iota
	Binary
	Integer
)

// Var is a decision variable with simple bounds.
type Var struct {
	Name   string
	Lower  float64
	Upper  float64
	Domain Domain
}

// Integral reports whether the variable must take an integer value.
func (v Var) Integral() bool { return v.Domain != Continuous }

// Term is a coefficient applied to a variable.
type Term struct {
	Var  VarID
	Coef float64
}

// Expr is a linear expression. The zero value is the empty expression.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Add appends coef*v to the expression and returns it for chaining. Like
// append, the result may share storage with e: do not derive two expressions
// from the same base.
func (e Expr) Add(v VarID, coef float64) Expr {
	if coef == 0 {
		return e
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConst adds c to the constant part.
func (e Expr) AddConst(c float64) Expr {
	e.Constant += c
	return e
}

// AddExpr appends every term of o scaled by k.
func (e Expr) AddExpr(o Expr, k float64) Expr {
	for _, t := range o.Terms {
		e = e.Add(t.Var, k*t.Coef)
	}
	e.Constant += k * o.Constant
	return e
}

// Eval evaluates the expression for the assignment x.
func (e Expr) Eval(x []float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * x[t.Var]
	}
	return s
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	Equal
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Equal:
		return "="
	case GreaterEq:
		return ">="
	default:
		return "?"
	}
}

// Constraint states Expr <sense> RHS. The expression constant is moved to the
// right-hand side when the constraint is added to a model.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Model is a minimization problem. It is built once per optimization call and
// is not safe for concurrent mutation.
type Model struct {
	name        string
	vars        []Var
	constraints []Constraint
	objective   Expr
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{name: name}
}

func (m *Model) Name() string { return m.name }

// AddVar adds a variable and returns its id. Binary variables are clamped to
// [0, 1].
func (m *Model) AddVar(name string, lower, upper float64, d Domain) VarID {
	if d == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	m.vars = append(m.vars, Var{Name: name, Lower: lower, Upper: upper, Domain: d})
	return VarID(len(m.vars) - 1)
}

// Continuous adds a continuous variable.
func (m *Model) Continuous(name string, lower, upper float64) VarID {
	return m.AddVar(name, lower, upper, Continuous)
}

// Binary adds a binary variable.
func (m *Model) Binary(name string) VarID {
	return m.AddVar(name, 0, 1, Binary)
}

// AddConstraint adds lhs <sense> rhs.
func (m *Model) AddConstraint(name string, lhs Expr, s Sense, rhs float64) {
	terms := make([]Term, 0, len(lhs.Terms))
	terms = append(terms, lhs.Terms...)
	m.constraints = append(m.constraints, Constraint{
		Name:  name,
		Expr:  Expr{Terms: terms},
		Sense: s,
		RHS:   rhs - lhs.Constant,
	})
}

// SetObjective sets the expression to minimize.
func (m *Model) SetObjective(e Expr) { m.objective = e }

// AddObjective adds e to the current objective.
func (m *Model) AddObjective(e Expr) { m.objective = m.objective.AddExpr(e, 1) }

func (m *Model) Vars() []Var               { return m.vars }
func (m *Model) Var(id VarID) Var          { return m.vars[id] }
func (m *Model) NumVars() int              { return len(m.vars) }
func (m *Model) Constraints() []Constraint { return m.constraints }
func (m *Model) Objective() Expr           { return m.objective }

// NumIntegral counts binary and integer variables.
func (m *Model) NumIntegral() int {
	n := 0
	for _, v := range m.vars {
		if v.Integral() {
			n++
		}
	}
	return n
}

// Violation returns the largest bound, constraint or integrality violation of
// x. A feasible point has a violation below the solver tolerance.
func (m *Model) Violation(x []float64) float64 {
	if len(x) != len(m.vars) {
		return math.Inf(1)
	}
	worst := 0.0
	for i, v := range m.vars {
		worst = math.Max(worst, v.Lower-x[i])
		worst = math.Max(worst, x[i]-v.Upper)
		if v.Integral() {
			worst = math.Max(worst, math.Abs(x[i]-math.Round(x[i])))
		}
	}
	for _, c := range m.constraints {
		lhs := c.Expr.Eval(x)
		switch c.Sense {
		case LessEq:
			worst = math.Max(worst, lhs-c.RHS)
		case GreaterEq:
			worst = math.Max(worst, c.RHS-lhs)
		case Equal:
			worst = math.Max(worst, math.Abs(lhs-c.RHS))
		}
	}
	return worst
}

// Validate checks the model for structural problems such as inverted bounds
// or references to unknown variables.
func (m *Model) Validate() error {
	for i, v := range m.vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) {
			return fmt.Errorf("var %s: NaN bound", v.Name)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("var %d (%s): lower %g above upper %g", i, v.Name, v.Lower, v.Upper)
		}
	}
	check := func(where string, e Expr) error {
		for _, t := range e.Terms {
			if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
				return fmt.Errorf("%s: unknown var %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s: invalid coefficient for %s", where, m.vars[t.Var].Name)
			}
		}
		return nil
	}
	for _, c := range m.constraints {
		if err := check("constraint "+c.Name, c.Expr); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %s: invalid rhs", c.Name)
		}
	}
	return check("objective", m.objective)
}
