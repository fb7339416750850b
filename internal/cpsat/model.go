// Package cpsat is a small CP-SAT-class boolean constraint solver: 0/1
// decision variables, linear (in)equalities over them, a linear objective,
// bound-consistency propagation, and a branch-and-bound search that can
// race several goroutine workers against a shared incumbent under a wall
// clock deadline. It is hand-written — no example repo in the retrieved
// pack ships an importable CP-SAT/ILP backend — but its variable/domain
// shape, constraint store and labeling strategy are grounded on
// gitrdm/gokanlogic's finite-domain engine (pkg/minikanren/fd_domains.go,
// fd_solver.go, labeling.go, gcc.go): typed variables with monotone
// domains, a constraint store posting (in)equalities, most-constrained
// first labeling, and goroutine-parallel search racing to a shared best
// incumbent (pkg/minikanren/parallel_search.go, optimize.go).
package cpsat

import "fmt"

// VarID identifies a boolean decision variable.
type VarID int

// Sense is the comparison operator of a linear constraint.
type Sense int

const (
	LE Sense = iota // sum <= rhs
	EQ              // sum == rhs
	GE              // sum >= rhs
)

// Term is one coeff*var addend of a linear expression.
type Term struct {
	Var   VarID
	Coeff int
}

// Constraint is a named linear (in)equality over boolean variables.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   int
}

// Model is the decision-variable set and posted constraints for one solve
// session (spec §4.3/§4.4). Variable and constraint posting order is
// whatever order the caller used — the model builder posts in sorted id
// order, which is what makes search deterministic given a fixed seed.
type Model struct {
	names       []string
	fixed       map[VarID]int
	constraints []Constraint
	objective   []Term
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{fixed: map[VarID]int{}}
}

// NewBoolVar allocates a fresh boolean variable and returns its id.
func (m *Model) NewBoolVar(name string) VarID {
	id := VarID(len(m.names))
	m.names = append(m.names, name)
	return id
}

// NumVars returns the number of variables allocated so far.
func (m *Model) NumVars() int { return len(m.names) }

// NumConstraints returns the number of posted constraints.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// ConstraintNames returns every posted constraint's name, in posting order.
// Builders post in sorted id order (spec §5), so two builds from the same
// input produce identical output here.
func (m *Model) ConstraintNames() []string {
	names := make([]string, len(m.constraints))
	for i, c := range m.constraints {
		names[i] = c.Name
	}
	return names
}

// VarNames returns every variable's name, in creation order.
func (m *Model) VarNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Name returns the variable's human-readable name.
func (m *Model) Name(v VarID) string { return m.names[v] }

// AddLinear posts sum(terms) <sense> rhs.
func (m *Model) AddLinear(name string, terms []Term, sense Sense, rhs int) {
	m.constraints = append(m.constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// AddBoolOr posts "at least one of vars is true" (sum >= 1).
func (m *Model) AddBoolOr(name string, vars ...VarID) {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coeff: 1}
	}
	m.AddLinear(name, terms, GE, 1)
}

// AddImplication posts a => b as (1-a) + b >= 1, i.e. -a + b >= 0.
func (m *Model) AddImplication(name string, a, b VarID) {
	m.AddLinear(name, []Term{{Var: a, Coeff: -1}, {Var: b, Coeff: 1}}, GE, 0)
}

// Fix pins a variable to a concrete value before search starts (spec §4.4
// "CP Pins"), overriding whatever the search would otherwise decide.
func (m *Model) Fix(v VarID, value int) {
	if value != 0 && value != 1 {
		panic(fmt.Sprintf("cpsat: invalid fixed value %d for var %d", value, v))
	}
	m.fixed[v] = value
}

// Fixed returns the value a variable was fixed to, and whether it was.
func (m *Model) Fixed(v VarID) (int, bool) {
	val, ok := m.fixed[v]
	return val, ok
}

// AddObjectiveTerm adds coeff*v to the linear objective to be minimised.
// Rewards are encoded as negative coefficients (spec §4.5).
func (m *Model) AddObjectiveTerm(v VarID, coeff int) {
	if coeff == 0 {
		return
	}
	m.objective = append(m.objective, Term{Var: v, Coeff: coeff})
}

// HasObjective reports whether any objective terms were posted.
func (m *Model) HasObjective() bool { return len(m.objective) > 0 }
