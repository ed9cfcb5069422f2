package server

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"medassist/backend/internal/config"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIClient answers questions the rule engine could not match.
type AIClient interface {
	Complete(ctx context.Context, history []ChatTurn, question string) (string, error)
}

const aiSystemPrompt = "You are a careful medical information assistant. " +
	"Provide general educational health information in plain language. " +
	"Never diagnose, never prescribe, and always advise consulting a qualified " +
	"healthcare professional. If the question suggests a medical emergency, " +
	"tell the user to contact emergency services immediately."

type OpenAIChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIChatClient(cfg config.Config) *OpenAIChatClient {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.OpenAIAPIKey))
	if baseURL := strings.TrimSpace(cfg.OpenAIBaseURL); baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}

	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &OpenAIChatClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   strings.TrimSpace(cfg.OpenAIModel),
		timeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

func (c *OpenAIChatClient) Complete(ctx context.Context, history []ChatTurn, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question must not be empty")
	}
	if c.model == "" {
		return "", errors.New("OPENAI_MODEL is not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: aiSystemPrompt,
	})
	for _, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai response had no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("openai response answer is empty")
	}
	return answer, nil
}

// MockAIClient is a deterministic stand-in for tests and local development.
type MockAIClient struct {
	Answer string
	Err    error
	Calls  int
}

func (m *MockAIClient) Complete(_ context.Context, _ []ChatTurn, question string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	return "Mock response: " + strings.TrimSpace(question), nil
}
