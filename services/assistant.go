package services

import (
	"context"
	"encoding/json"
	"strings"
)

// AssistantService passes messages through to the AI endpoints. The client
// attaches no meaning to what comes back.
type AssistantService struct {
	api *APIClient
}

func NewAssistantService(api *APIClient) *AssistantService {
	return &AssistantService{api: api}
}

type chatReply struct {
	Response string `json:"response"`
}

// Chat asks the course assistant.
func (s *AssistantService) Chat(ctx context.Context, message string) (string, error) {
	return s.ask(ctx, OpChat, message)
}

// DeepSeekChat asks the DeepSeek-backed assistant.
func (s *AssistantService) DeepSeekChat(ctx context.Context, message string) (string, error) {
	return s.ask(ctx, OpDeepSeekChat, message)
}

func (s *AssistantService) ask(ctx context.Context, op, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", nil
	}
	var reply chatReply
	req := Request{Operation: op, Body: map[string]string{"message": message}}
	if err := s.api.Do(ctx, req, &reply); err != nil {
		return "", err
	}
	return reply.Response, nil
}

// Recommendations returns the adaptive-learning payload as is.
func (s *AssistantService) Recommendations(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.api.Do(ctx, Request{Operation: OpRecommendations}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
