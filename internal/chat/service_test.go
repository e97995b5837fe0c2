package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM returns scripted completions in order and records every request.
type fakeLLM struct {
	requests  []llm.ChatRequest
	responses []*llm.ChatCompletion
	errs      []error
}

func (f *fakeLLM) CreateChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatCompletion, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func textCompletion(content string) *llm.ChatCompletion {
	return &llm.ChatCompletion{
		Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}},
	}
}

func toolCompletion(name, arguments string) *llm.ChatCompletion {
	return &llm.ChatCompletion{
		Choices: []llm.Choice{{
			Message: llm.Message{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{
					{Type: "function", Function: llm.FunctionCall{Name: name, Arguments: arguments}},
				},
			},
		}},
	}
}

type fakeSearcher struct {
	queries []string
	url     string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func baseRequest() UpdateChatRequest {
	return UpdateChatRequest{
		SystemPrompt:           "You are an AI assistant that helps with email template modifications.",
		ReceiverProfileDetails: "retail customers",
		SenderProfileDetails:   "Acme Outdoors",
		Purpose:                "flash sale",
		UserMessage:            "make it blue",
		LogoURL:                "https://cdn.example/logo.png",
		History: []domain.ChatTurn{
			{Role: domain.RoleUser, Content: "start from the outdoors template"},
			{Role: domain.RoleAssistant, Content: "<html>v1</html>"},
		},
		EmailContent: "<p>A</p>",
	}
}

func TestUpdateChatNoToolCall(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{textCompletion("<p>A blue</p>")}}
	images := &fakeSearcher{}
	svc := NewService(mock, images, "gpt-4o")

	req := baseRequest()
	result, err := svc.UpdateChat(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "<p>A blue</p>", result.Response)
	assert.Len(t, mock.requests, 1, "exactly one upstream call")
	assert.Empty(t, images.queries, "image adapter must not be invoked")

	// The submitted draft is never mutated by the orchestrator.
	assert.Equal(t, "<p>A</p>", req.EmailContent)
}

func TestUpdateChatMessageComposition(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{textCompletion("ok")}}
	svc := NewService(mock, &fakeSearcher{}, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())
	require.NoError(t, err)

	msgs := mock.requests[0].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Receiver Profile: retail customers")
	assert.Contains(t, msgs[0].Content, "Logo URL: https://cdn.example/logo.png")
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	// The current draft rides as the model's own prior output.
	assert.Equal(t, llm.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "<p>A</p>", msgs[3].Content)
	assert.Equal(t, llm.RoleUser, msgs[4].Role)
	assert.Equal(t, "make it blue", msgs[4].Content)

	require.Len(t, mock.requests[0].Tools, 1)
	assert.Equal(t, searchUnsplashTool, mock.requests[0].Tools[0].Function.Name)
	assert.Zero(t, mock.requests[0].Temperature)
}

func TestUpdateChatWithToolCall(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{
		toolCompletion(searchUnsplashTool, `{"query":"blue ocean"}`),
		textCompletion("<img src=\"https://images.example/ocean.jpg\">"),
	}}
	images := &fakeSearcher{url: "https://images.example/ocean.jpg"}
	svc := NewService(mock, images, "gpt-4o")

	result, err := svc.UpdateChat(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "<img src=\"https://images.example/ocean.jpg\">", result.Response)
	require.Len(t, mock.requests, 2, "exactly two upstream calls")
	require.Equal(t, []string{"blue ocean"}, images.queries, "adapter invoked once with the parsed query")

	// Follow-up call appends the tool invocation and its result.
	followUp := mock.requests[1].Messages
	require.Len(t, followUp, 7)
	invocation := followUp[5]
	assert.Equal(t, llm.RoleAssistant, invocation.Role)
	require.NotNil(t, invocation.FunctionCall)
	assert.Equal(t, searchUnsplashTool, invocation.FunctionCall.Name)
	toolResult := followUp[6]
	assert.Equal(t, llm.RoleFunction, toolResult.Role)
	assert.Equal(t, searchUnsplashTool, toolResult.Name)
	assert.Contains(t, toolResult.Content, "https://images.example/ocean.jpg")
	assert.Empty(t, mock.requests[1].Tools, "follow-up declares no tools")
}

func TestUpdateChatOnlyFirstToolCallHonored(t *testing.T) {
	first := toolCompletion(searchUnsplashTool, `{"query":"forest"}`)
	first.Choices[0].Message.ToolCalls = append(first.Choices[0].Message.ToolCalls,
		llm.ToolCall{Type: "function", Function: llm.FunctionCall{Name: searchUnsplashTool, Arguments: `{"query":"ignored"}`}},
	)
	mock := &fakeLLM{responses: []*llm.ChatCompletion{first, textCompletion("done")}}
	images := &fakeSearcher{url: "https://images.example/forest.jpg"}
	svc := NewService(mock, images, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.Equal(t, []string{"forest"}, images.queries)
}

func TestUpdateChatMalformedToolArguments(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{
		toolCompletion(searchUnsplashTool, `{"query":`),
	}}
	images := &fakeSearcher{url: "unused"}
	svc := NewService(mock, images, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())

	require.Error(t, err)
	assert.Empty(t, images.queries)
}

func TestUpdateChatAdapterFailureAborts(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{
		toolCompletion(searchUnsplashTool, `{"query":"empty"}`),
	}}
	images := &fakeSearcher{err: errors.New("no results")}
	svc := NewService(mock, images, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())

	require.Error(t, err)
	assert.Len(t, mock.requests, 1, "no follow-up call after adapter failure")
}

func TestUpdateChatSecondCallFailureDiscardsFirst(t *testing.T) {
	mock := &fakeLLM{
		responses: []*llm.ChatCompletion{
			toolCompletion(searchUnsplashTool, `{"query":"q"}`),
			nil,
		},
		errs: []error{nil, llm.ErrBadResponse},
	}
	svc := NewService(mock, &fakeSearcher{url: "https://images.example/x.jpg"}, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())

	require.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestUpdateChatFirstCallFailure(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{nil}, errs: []error{llm.ErrUnavailable}}
	svc := NewService(mock, &fakeSearcher{}, "gpt-4o")

	_, err := svc.UpdateChat(context.Background(), baseRequest())

	require.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestUpdateChatRejectsMalformedHistory(t *testing.T) {
	mock := &fakeLLM{}
	svc := NewService(mock, &fakeSearcher{}, "gpt-4o")

	req := baseRequest()
	req.History = append(req.History, domain.ChatTurn{Role: "system", Content: "sneaky"})

	_, err := svc.UpdateChat(context.Background(), req)

	require.Error(t, err)
	assert.Empty(t, mock.requests, "no upstream call for a rejected request")
}

func TestUpdateChatRequiresMessage(t *testing.T) {
	mock := &fakeLLM{}
	svc := NewService(mock, &fakeSearcher{}, "gpt-4o")

	req := baseRequest()
	req.UserMessage = ""

	_, err := svc.UpdateChat(context.Background(), req)

	require.Error(t, err)
	assert.Empty(t, mock.requests)
}
