package domain

import (
	"sort"
)

// Priority is the urgency the model assigned to a main task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
}

// Rank returns the sort weight of the priority. Unknown values rank lowest.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// Valid reports whether p is one of the three known priority values.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// MainTask is a top-level task in a generated day plan.
type MainTask struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
}

// Subtask is a model-generated breakdown step; MainTaskName joins it to its
// owning main task by exact string equality.
type Subtask struct {
	Description  string  `json:"description"`
	Time         float64 `json:"time"`
	MainTaskName string  `json:"mainTaskName"`
}

// GeneratedSchedule is the structured day plan parsed from the planner's
// function-call arguments.
type GeneratedSchedule struct {
	MainTasks []MainTask `json:"mainTasks"`
	Subtasks  []Subtask  `json:"subtasks"`
}

// PlannedTask is a main task with its grouped subtasks, used for rendering.
type PlannedTask struct {
	MainTask
	Subtasks []Subtask `json:"subtasks"`
}

// DayPlan is a schedule arranged for display: main tasks sorted by descending
// priority with their subtasks attached, plus any subtasks whose
// mainTaskName matched no main task. Orphans are surfaced rather than
// silently dropped so the caller can decide what to do with them.
type DayPlan struct {
	Tasks          []PlannedTask `json:"tasks"`
	OrphanSubtasks []Subtask     `json:"orphanSubtasks,omitempty"`
}

// Arrange groups subtasks under their main tasks and sorts main tasks by
// descending priority (high, medium, low). Relative order within the same
// priority follows the model's original ordering.
func (s GeneratedSchedule) Arrange() DayPlan {
	byName := make(map[string]int, len(s.MainTasks))
	tasks := make([]PlannedTask, len(s.MainTasks))
	for i, mt := range s.MainTasks {
		tasks[i] = PlannedTask{MainTask: mt}
		if _, dup := byName[mt.Name]; !dup {
			byName[mt.Name] = i
		}
	}

	var orphans []Subtask
	for _, st := range s.Subtasks {
		idx, ok := byName[st.MainTaskName]
		if !ok {
			orphans = append(orphans, st)
			continue
		}
		tasks[idx].Subtasks = append(tasks[idx].Subtasks, st)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})

	return DayPlan{Tasks: tasks, OrphanSubtasks: orphans}
}
