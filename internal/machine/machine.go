package machine

import "github.com/hylla/todos/internal/domain"

// Persister receives the task list after every transition that asks for it.
// Implementations own their error handling; nothing is reported back.
type Persister interface {
	Save(tasks []domain.Task)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(tasks []domain.Task)

// Save calls f.
func (f PersisterFunc) Save(tasks []domain.Task) {
	f(tasks)
}

// Option configures a Machine.
type Option func(*Machine)

// WithIDGenerator sets the generator used for new task ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithPersister sets the persistence hook.
func WithPersister(p Persister) Option {
	return func(m *Machine) {
		m.persister = p
	}
}

// WithView sets the initial view region.
func WithView(view domain.View) Option {
	return func(m *Machine) {
		if parsed, err := domain.ParseView(string(view)); err == nil {
			m.state.View = parsed
		}
	}
}

// WithStatus restores the status sub-regions instead of deriving them from
// the pending text.
func WithStatus(validity Validity, interaction Interaction) Option {
	return func(m *Machine) {
		knownValidity := validity == Valid || validity == Invalid
		knownInteraction := interaction == Clean || interaction == Dirty
		if knownValidity && knownInteraction {
			m.state.Validity = validity
			m.state.Interaction = interaction
		}
	}
}

// Machine holds the settled state and context. Events run to completion one at
// a time; a Machine is not safe for concurrent use.
type Machine struct {
	state     State
	ctx       Context
	newID     IDGenerator
	persister Persister
}

// New builds a machine over initial and settles the status sub-regions before
// any event is accepted.
func New(initial Context, opts ...Option) *Machine {
	ctx := initial.Clone()
	m := &Machine{
		state: initialState(ctx),
		ctx:   ctx,
		newID: sequentialIDs(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Send applies ev, runs any requested effects and returns the settled snapshot.
func (m *Machine) Send(ev Event) Snapshot {
	if ev == nil {
		return m.Snapshot()
	}
	m.state, m.ctx = m.apply(ev)
	return m.Snapshot()
}

// apply runs the pure transition and then its effects.
func (m *Machine) apply(ev Event) (State, Context) {
	state, ctx, effects := Transition(m.state, m.ctx, ev, m.newID)
	if effects.Persist {
		m.persist(ctx.Tasks)
	}
	return state, ctx
}

// persist hands a copy of tasks to the persister. A panicking persister must
// not take the machine down with it.
func (m *Machine) persist(tasks []domain.Task) {
	if m.persister == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	m.persister.Save(domain.CloneTasks(tasks))
}

// Snapshot returns a copy of the current state and context.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:   m.state,
		Context: m.ctx.Clone(),
	}
}
