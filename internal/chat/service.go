// Package chat implements the email-editing chat orchestrator.
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/llm"
	"github.com/avasilyev/mailsmith/internal/unsplash"
)

const searchUnsplashTool = "search_unsplash"

var searchUnsplashParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The search query for the image"
		}
	},
	"required": ["query"]
}`)

// UpdateChatRequest carries one email-editing instruction plus all the
// context the model needs. Nothing here is length-validated; the upstream
// provider's limits are the effective constraint.
type UpdateChatRequest struct {
	SystemPrompt           string            `json:"systemPrompt"`
	ReceiverProfileDetails string            `json:"receiverProfileDetails"`
	SenderProfileDetails   string            `json:"senderProfileDetails"`
	Purpose                string            `json:"purpose"`
	UserMessage            string            `json:"userMessage"`
	LogoURL                string            `json:"logoUrl"`
	History                []domain.ChatTurn `json:"userChatHistory"`
	EmailContent           string            `json:"emailContent"`
}

// Validate rejects malformed history turns at the boundary. Client-supplied
// turns may only carry the user and assistant roles.
func (r UpdateChatRequest) Validate() error {
	if r.UserMessage == "" {
		return fmt.Errorf("userMessage is required")
	}
	for i, turn := range r.History {
		if err := turn.Validate(); err != nil {
			return fmt.Errorf("chat history turn %d: %w", i, err)
		}
	}
	return nil
}

// UpdateChatResult is the orchestrator's answer: the full replacement HTML
// for the draft. The caller owns applying it; the orchestrator never mutates
// the submitted emailContent.
type UpdateChatResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// Service orchestrates the chat-completion flow for email edits.
type Service struct {
	llm    llm.Client
	images unsplash.Searcher
	model  string
}

// NewService creates a chat orchestrator using the given completion client
// and image searcher.
func NewService(client llm.Client, images unsplash.Searcher, model string) *Service {
	return &Service{llm: client, images: images, model: model}
}

// UpdateChat sends the conversation to the model and returns the updated
// email HTML. When the model requests the search_unsplash tool, the query is
// resolved through the image adapter and a second completion folds the image
// URL into the final answer. Only the first tool call is honored.
//
// Any downstream failure aborts the whole operation: a failure during the
// second call discards the first call's output entirely.
func (s *Service) UpdateChat(ctx context.Context, req UpdateChatRequest) (UpdateChatResult, error) {
	if err := req.Validate(); err != nil {
		return UpdateChatResult{}, err
	}

	messages := s.composeMessages(req)

	first, err := s.llm.CreateChatCompletion(ctx, llm.ChatRequest{
		Model:    s.model,
		Messages: messages,
		Tools: []llm.Tool{
			llm.NewFunctionTool(
				searchUnsplashTool,
				"Provide an image URL. Only call this function when there is a new requirement or replacement of image, don't call when image position needs to be changed.",
				searchUnsplashParams,
			),
		},
		Temperature: 0,
	})
	if err != nil {
		return UpdateChatResult{}, fmt.Errorf("chat completion: %w", err)
	}

	msg := first.First()
	toolCall, ok := msg.FirstToolCall()
	if !ok || toolCall.Function.Name != searchUnsplashTool {
		return UpdateChatResult{Success: true, Response: msg.Content}, nil
	}

	answer, err := s.resolveImageAndFollowUp(ctx, messages, msg, toolCall)
	if err != nil {
		return UpdateChatResult{}, err
	}
	return UpdateChatResult{Success: true, Response: answer}, nil
}

// composeMessages builds the completion message list: system context, the
// prior turns in original order, the current draft as an assistant turn (so
// the model sees it as its own prior output), then the new instruction.
func (s *Service) composeMessages(req UpdateChatRequest) []llm.Message {
	messages := make([]llm.Message, 0, len(req.History)+3)

	messages = append(messages, llm.Message{
		Role: llm.RoleSystem,
		Content: fmt.Sprintf("%s\nReceiver Profile: %s\nSender Profile: %s\nPurpose: %s\nLogo URL: %s",
			req.SystemPrompt, req.ReceiverProfileDetails, req.SenderProfileDetails, req.Purpose, req.LogoURL),
	})

	for _, turn := range req.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: req.EmailContent},
		llm.Message{Role: llm.RoleUser, Content: req.UserMessage},
	)
	return messages
}

func (s *Service) resolveImageAndFollowUp(ctx context.Context, messages []llm.Message, assistant llm.Message, toolCall llm.ToolCall) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("parsing %s arguments: %w", searchUnsplashTool, err)
	}

	imageURL, err := s.images.Search(ctx, args.Query)
	if err != nil {
		return "", fmt.Errorf("image search: %w", err)
	}

	queryArgs, err := json.Marshal(map[string]string{"query": args.Query})
	if err != nil {
		return "", fmt.Errorf("marshaling tool arguments: %w", err)
	}
	toolResult, err := json.Marshal(map[string]string{
		"query":     args.Query,
		"image_url": imageURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling tool result: %w", err)
	}

	followUp := make([]llm.Message, 0, len(messages)+2)
	followUp = append(followUp, messages...)
	followUp = append(followUp,
		llm.Message{
			Role:    llm.RoleAssistant,
			Content: assistant.Content,
			FunctionCall: &llm.FunctionCall{
				Name:      searchUnsplashTool,
				Arguments: string(queryArgs),
			},
		},
		llm.Message{
			Role:    llm.RoleFunction,
			Name:    searchUnsplashTool,
			Content: string(toolResult),
		},
	)

	second, err := s.llm.CreateChatCompletion(ctx, llm.ChatRequest{
		Model:       s.model,
		Messages:    followUp,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("follow-up completion: %w", err)
	}

	return second.First().Content, nil
}
