// Package conflict inspects a batch of tasks before scheduling and reports
// which resources are claimed by more than one task. It is a pure,
// synchronous diagnostic: no I/O and no effect on runtime lock state.
package conflict

import (
	"sort"

	"github.com/testforge/reslock/v1/task"
)

// Conflict names a resource claimed by more than one task.
type Conflict struct {
	Resource string
	TaskIDs  []string
}

// List reports every resource declared by two or more of the given tasks,
// sorted by resource name. Task IDs keep their input order; duplicate
// declarations within a single task do not conflict with themselves.
func List(tasks []task.Task) []Conflict {
	claims := make(map[string][]string)
	for _, t := range tasks {
		seen := make(map[string]struct{}, len(t.Resources))
		for _, r := range t.Resources {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			claims[r] = append(claims[r], t.ID)
		}
	}
	var out []Conflict
	for r, ids := range claims {
		if len(ids) > 1 {
			out = append(out, Conflict{Resource: r, TaskIDs: ids})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}
