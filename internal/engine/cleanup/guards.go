// Package cleanup provides a LIFO stack of teardown actions that runs
// on every exit path a run-loop phase can take: a normal return, an
// error return, or a recovered panic.
package cleanup

// Guards is a stack of teardown actions. The zero value is ready to
// use. Guards is not safe for concurrent use; each run-loop phase owns
// its own Guards.
type Guards struct {
	actions []func() error
}

// Add pushes a teardown action onto the stack. Actions run in reverse
// registration order, so the most recently acquired resource (e.g. a
// started container) is released before the one it depends on (e.g.
// the temp directory its mounts point into).
func (g *Guards) Add(action func() error) {
	g.actions = append(g.actions, action)
}

// Unwind runs every registered action, most-recently-added first,
// collecting (not short-circuiting on) individual failures so that one
// guard's error never prevents the others from running; the first such
// failure is written to *errp if errp is non-nil and *errp is not
// already set. If Unwind runs during a panicking deferred call, it
// still unwinds every guard before the panic is allowed to continue.
//
// Callers install this with a single `defer guards.Unwind(&err)` at the
// top of the phase function the guards belong to.
func (g *Guards) Unwind(errp *error) {
	r := recover()

	for i := len(g.actions) - 1; i >= 0; i-- {
		if err := g.actions[i](); err != nil && errp != nil && *errp == nil {
			*errp = err
		}
	}
	g.actions = nil

	if r != nil {
		panic(r)
	}
}
