package types

import "fmt"

// Var identifies what a client observes or writes: either a named panel
// local variable or an FSUIPC offset.
type Var interface {
	isVar()
	fmt.Stringer
}

// LVar is a panel local variable addressed by name.
type LVar string

func (LVar) isVar()          {}
func (l LVar) String() string { return string(l) }

// FsuipcOffset is an FSUIPC offset addressed as a Var.
type FsuipcOffset Offset

func (FsuipcOffset) isVar() {}
func (f FsuipcOffset) String() string {
	return Offset(f).String()
}
