// Package task defines the unit of scheduled work the lock subsystem
// coordinates over. Tasks are owned by the surrounding scheduler; reslock
// only ever reads the identifier and the declared resources.
package task

// Task is an opaque unit of work with a stable identifier and the list of
// resource names it requires exclusive access to. The order of Resources
// carries no meaning.
type Task struct {
	ID        string
	Resources []string
}

// New returns a Task declaring the given resources.
func New(id string, resources ...string) Task {
	return Task{ID: id, Resources: resources}
}
