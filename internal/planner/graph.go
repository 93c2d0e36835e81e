package planner

import (
	"sort"
	"strings"

	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// detectCycle runs a depth-first search over the dependency graph and
// returns the task IDs forming a cycle, in order, with the entry task
// repeated at both ends. Returns nil when the graph is acyclic.
func detectCycle(tasks []*domain.Task) []string {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	visited := make(map[string]bool, len(tasks))
	recStack := make(map[string]bool, len(tasks))
	parent := make(map[string]string, len(tasks))

	var dfs func(taskID string) []string
	dfs = func(taskID string) []string {
		visited[taskID] = true
		recStack[taskID] = true

		task := byID[taskID]
		if task == nil {
			recStack[taskID] = false
			return nil
		}

		for _, dep := range task.Dependencies {
			if !visited[dep] {
				parent[dep] = taskID
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				// Found a cycle; walk the parent chain back to reconstruct it.
				cycle := []string{dep}
				current := taskID
				for current != dep {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]string{dep}, cycle...)
				return cycle
			}
		}

		recStack[taskID] = false
		return nil
	}

	for _, task := range tasks {
		if !visited[task.ID] {
			if cycle := dfs(task.ID); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// cycleError wraps ErrCircularDependency with the task IDs forming the cycle.
func cycleError(cycle []string) error {
	return gerrors.Wrapf(gerrors.ErrCircularDependency, "%s", strings.Join(cycle, " -> "))
}

// layerTasks performs an iterative topological layering (Kahn's algorithm):
// it repeatedly collects every task whose dependencies are all placed in
// earlier layers, orders the ready set by priority then input position, and
// splits it into sequential groups no larger than maxConcurrency.
//
// Callers must have validated the graph first; layerTasks assumes it is
// acyclic and fully resolvable.
func layerTasks(tasks []*domain.Task, maxConcurrency int) []domain.ExecutionGroup {
	inDegree := make(map[string]int, len(tasks))
	position := make(map[string]int, len(tasks))
	for i, task := range tasks {
		inDegree[task.ID] = len(task.Dependencies)
		position[task.ID] = i
	}

	var groups []domain.ExecutionGroup
	placed := make(map[string]bool, len(tasks))
	order := 0

	for len(placed) < len(tasks) {
		var ready []*domain.Task
		for _, task := range tasks {
			if placed[task.ID] {
				continue
			}
			if inDegree[task.ID] == 0 {
				ready = append(ready, task)
			}
		}

		if len(ready) == 0 {
			// Unreachable on a validated graph.
			break
		}

		sort.SliceStable(ready, func(i, j int) bool {
			ri, rj := ready[i].Priority.Rank(), ready[j].Priority.Rank()
			if ri != rj {
				return ri > rj
			}
			return position[ready[i].ID] < position[ready[j].ID]
		})

		for start := 0; start < len(ready); start += maxConcurrency {
			end := start + maxConcurrency
			if end > len(ready) {
				end = len(ready)
			}

			ids := make([]string, 0, end-start)
			for _, task := range ready[start:end] {
				ids = append(ids, task.ID)
			}
			groups = append(groups, domain.ExecutionGroup{
				Order:            order,
				TaskIDs:          ids,
				CanRunInParallel: len(ids) > 1,
			})
			order++
		}

		for _, task := range ready {
			placed[task.ID] = true
			for _, other := range tasks {
				if other.DependsOn(task.ID) {
					inDegree[other.ID]--
				}
			}
		}
	}

	return groups
}
