package domain

import (
	"testing"
)

func TestArrangeSortsByDescendingPriority(t *testing.T) {
	s := GeneratedSchedule{
		MainTasks: []MainTask{
			{Name: "email sweep", Priority: PriorityLow},
			{Name: "write report", Priority: PriorityHigh},
			{Name: "standup", Priority: PriorityMedium},
		},
	}

	plan := s.Arrange()

	got := []string{plan.Tasks[0].Name, plan.Tasks[1].Name, plan.Tasks[2].Name}
	want := []string{"write report", "standup", "email sweep"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArrangeIsStableWithinPriority(t *testing.T) {
	s := GeneratedSchedule{
		MainTasks: []MainTask{
			{Name: "first", Priority: PriorityHigh},
			{Name: "second", Priority: PriorityHigh},
			{Name: "third", Priority: PriorityHigh},
		},
	}

	plan := s.Arrange()

	if plan.Tasks[0].Name != "first" || plan.Tasks[1].Name != "second" || plan.Tasks[2].Name != "third" {
		t.Fatalf("expected original order preserved, got %v", plan.Tasks)
	}
}

func TestArrangeGroupsSubtasksByExactName(t *testing.T) {
	s := GeneratedSchedule{
		MainTasks: []MainTask{
			{Name: "write report", Priority: PriorityHigh},
			{Name: "standup", Priority: PriorityLow},
		},
		Subtasks: []Subtask{
			{Description: "outline", Time: 0.5, MainTaskName: "write report"},
			{Description: "draft", Time: 2, MainTaskName: "write report"},
			{Description: "prep notes", Time: 0.25, MainTaskName: "standup"},
		},
	}

	plan := s.Arrange()

	if len(plan.Tasks[0].Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks under %q, got %d", plan.Tasks[0].Name, len(plan.Tasks[0].Subtasks))
	}
	if len(plan.Tasks[1].Subtasks) != 1 {
		t.Fatalf("expected 1 subtask under %q, got %d", plan.Tasks[1].Name, len(plan.Tasks[1].Subtasks))
	}
	if len(plan.OrphanSubtasks) != 0 {
		t.Fatalf("expected no orphans, got %v", plan.OrphanSubtasks)
	}
}

func TestArrangeReportsOrphanSubtasks(t *testing.T) {
	s := GeneratedSchedule{
		MainTasks: []MainTask{
			{Name: "write report", Priority: PriorityMedium},
		},
		Subtasks: []Subtask{
			{Description: "outline", Time: 0.5, MainTaskName: "write report"},
			{Description: "lost step", Time: 1, MainTaskName: "Write Report"},
		},
	}

	plan := s.Arrange()

	if len(plan.OrphanSubtasks) != 1 {
		t.Fatalf("expected 1 orphan, got %d", len(plan.OrphanSubtasks))
	}
	if plan.OrphanSubtasks[0].Description != "lost step" {
		t.Fatalf("unexpected orphan: %+v", plan.OrphanSubtasks[0])
	}
}

func TestPriorityRankUnknownIsLowest(t *testing.T) {
	if Priority("urgent").Rank() != 0 {
		t.Fatal("unknown priority should rank lowest")
	}
	if Priority("urgent").Valid() {
		t.Fatal("unknown priority should not be valid")
	}
}

func TestUserCanGenerate(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"credits only", User{Credits: 1}, true},
		{"no credits no subscription", User{Credits: 0}, false},
		{"active subscription", User{Credits: 0, SubscriptionStatus: "active"}, true},
		{"deleted subscription", User{Credits: 0, SubscriptionStatus: SubscriptionDeleted}, false},
		{"past due subscription", User{Credits: 0, SubscriptionStatus: SubscriptionPastDue}, false},
		{"past due but has credits", User{Credits: 2, SubscriptionStatus: SubscriptionPastDue}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanGenerate(); got != tt.want {
				t.Errorf("CanGenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatTurnValidate(t *testing.T) {
	if err := (ChatTurn{Role: RoleUser, Content: "make it blue"}).Validate(); err != nil {
		t.Fatalf("valid turn rejected: %v", err)
	}
	if err := (ChatTurn{Role: "system", Content: "x"}).Validate(); err == nil {
		t.Fatal("system role should be rejected at the boundary")
	}
	if err := (ChatTurn{Role: RoleAssistant, Content: ""}).Validate(); err == nil {
		t.Fatal("empty content should be rejected")
	}
}
