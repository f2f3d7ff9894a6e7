package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIConfig 描述兼容 OpenAI 的对话补全端点
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// OpenAIClient 对接任何实现 OpenAI chat completions 接口的端点
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	log    *logrus.Entry
}

// NewOpenAIClient 根据 cfg 创建客户端，模型名必填。
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    logrus.WithField("component", "completion.openai"),
	}, nil
}

// Complete 实现 Client
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: c.buildMessages(req),
	}
	if c.cfg.Temperature != nil {
		request.Temperature = float32(*c.cfg.Temperature)
	}
	if c.cfg.TopP != nil {
		request.TopP = float32(*c.cfg.TopP)
	}
	if c.cfg.MaxTokens != nil {
		request.MaxTokens = *c.cfg.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", unavailable(fmt.Errorf("chat completion failed: %w", err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", unavailable(ErrEmptyCompletion)
	}

	content := resp.Choices[0].Message.Content
	c.log.WithFields(logrus.Fields{
		"model":  c.cfg.Model,
		"length": len(content),
	}).Debug("completion generated")
	return content, nil
}

func (c *OpenAIClient) buildMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, msg := range req.History {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
		case RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content})
		}
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
}
