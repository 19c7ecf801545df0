package irp

import (
	"fmt"
	"sort"
)

// Vartable is the name to value environment of one render.
type Vartable struct {
	vars map[string]int64
	defs map[string]Expr
	busy map[string]bool
}

func NewVartable() *Vartable {
	return &Vartable{
		vars: make(map[string]int64),
		defs: make(map[string]Expr),
		busy: make(map[string]bool),
	}
}

// VartableFrom returns a table holding the given parameter values.
func VartableFrom(params map[string]int64) *Vartable {
	v := NewVartable()
	for name, val := range params {
		v.Set(name, val)
	}
	return v
}

func (v *Vartable) Set(name string, val int64) {
	v.vars[name] = val
}

// Define registers an expression that is evaluated each time name is
// looked up and no value has been set for it.
func (v *Vartable) Define(name string, e Expr) {
	v.defs[name] = e
}

func (v *Vartable) Has(name string) bool {
	if _, ok := v.vars[name]; ok {
		return true
	}
	_, ok := v.defs[name]
	return ok
}

func (v *Vartable) Get(name string) (int64, error) {
	if val, ok := v.vars[name]; ok {
		return val, nil
	}
	def, ok := v.defs[name]
	if !ok {
		return 0, &UndefinedVariableError{Name: name}
	}
	if v.busy[name] {
		return 0, fmt.Errorf("%s: %w", name, ErrRecursiveDefinition)
	}
	v.busy[name] = true
	defer delete(v.busy, name)
	return Eval(def, v)
}

// Names returns the names holding a value, sorted.
func (v *Vartable) Names() []string {
	names := make([]string, 0, len(v.vars))
	for name := range v.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *Vartable) clone() *Vartable {
	c := NewVartable()
	for name, val := range v.vars {
		c.vars[name] = val
	}
	for name, e := range v.defs {
		c.defs[name] = e
	}
	return c
}
