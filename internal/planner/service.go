// Package planner implements the AI daily task planner.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/llm"
	"github.com/avasilyev/mailsmith/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrUnauthorized indicates no authenticated user is present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPaymentRequired indicates the user has no credits and no valid
	// subscription. It is raised before any LLM call or credit mutation.
	ErrPaymentRequired = errors.New("user has not paid or is out of credits")
)

// Service orchestrates day-plan generation with the credits gate.
type Service struct {
	repo  store.Repository
	llm   llm.Client
	model string
}

// NewService creates a planner service.
func NewService(repo store.Repository, client llm.Client, model string) *Service {
	return &Service{repo: repo, llm: client, model: model}
}

// GeneratePlan loads the user's tasks, spends a credit if needed, and asks
// the model for a structured day plan via a forced function call.
//
// Credit handling: users without a valid subscription pay one credit per
// call through an atomic compare-and-decrement; losing the decrement race
// surfaces as ErrPaymentRequired, never a negative balance. Failures after
// the spend (other than the payment gate itself) refund the credit.
func (s *Service) GeneratePlan(ctx context.Context, userID, hours string) (*domain.GeneratedSchedule, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	tasks, err := s.repo.ListTasksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	if !user.CanGenerate() {
		return nil, ErrPaymentRequired
	}

	spent := false
	if !user.HasValidSubscription() {
		spent, err = s.repo.SpendCredit(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("spend credit: %w", err)
		}
		if !spent {
			// Another request drained the balance between the gate
			// check and the decrement.
			return nil, ErrPaymentRequired
		}
		slog.Info("credit spent for plan generation", "user_id", userID)
	}

	schedule, err := s.generate(ctx, userID, hours, tasks)
	if err != nil {
		if spent {
			if refundErr := s.repo.RefundCredit(ctx, userID); refundErr != nil {
				slog.Error("failed to refund credit after plan failure",
					"user_id", userID, "error", refundErr)
			}
		}
		return nil, err
	}
	return schedule, nil
}

func (s *Service) generate(ctx context.Context, userID, hours string, tasks []*domain.Task) (*domain.GeneratedSchedule, error) {
	type promptTask struct {
		Description string  `json:"description"`
		Time        float64 `json:"time"`
	}
	parsed := make([]promptTask, 0, len(tasks))
	for _, t := range tasks {
		parsed = append(parsed, promptTask{Description: t.Description, Time: t.Time})
	}
	tasksJSON, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("marshaling tasks: %w", err)
	}

	completion, err := s.llm.CreateChatCompletion(ctx, llm.ChatRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: plannerSystemPrompt},
			{
				Role: llm.RoleUser,
				Content: fmt.Sprintf("I will work %s hours today. Here are the tasks I have to complete: %s. "+
					"Please help me plan my day by breaking the tasks down into actionable subtasks with time and priority status.",
					hours, tasksJSON),
			},
		},
		Tools: []llm.Tool{
			llm.NewFunctionTool(scheduleToolName, "parses the days tasks and returns a schedule", scheduleToolParams),
		},
		ToolChoice:  llm.ForcedFunction(scheduleToolName),
		Temperature: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}

	toolCall, ok := completion.First().FirstToolCall()
	if !ok || toolCall.Function.Name != scheduleToolName {
		return nil, fmt.Errorf("%w: expected %s function call", llm.ErrBadResponse, scheduleToolName)
	}
	raw := toolCall.Function.Arguments

	// Keep a raw audit copy before parsing so a malformed response is still
	// traceable.
	audit := &domain.GptResponse{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   raw,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateGptResponse(ctx, audit); err != nil {
		return nil, fmt.Errorf("persist plan audit record: %w", err)
	}

	var schedule domain.GeneratedSchedule
	if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
		return nil, fmt.Errorf("%w: parsing %s arguments: %v", llm.ErrBadResponse, scheduleToolName, err)
	}
	return &schedule, nil
}

// ListGptResponses returns the user's raw plan audit records, newest first.
func (s *Service) ListGptResponses(ctx context.Context, userID string) ([]*domain.GptResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.repo.ListGptResponses(ctx, userID)
}
