package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

// ChainClient 通过 eino 链处理请求：系统提示、历史占位、用户提示，最后是对话模型。
type ChainClient struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   *logrus.Entry
}

// NewChainClient 围绕给定模型编译对话链
func NewChainClient(ctx context.Context, chatModel model.ChatModel) (*ChainClient, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &ChainClient{
		chain: runnable,
		log:   logrus.WithField("component", "completion.chain"),
	}, nil
}

// Complete 实现 Client
func (c *ChainClient) Complete(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"system":  req.System,
		"history": toSchemaMessages(req.History),
		"query":   req.Prompt,
	}

	response, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return "", unavailable(fmt.Errorf("failed to run completion chain: %w", err))
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", unavailable(ErrEmptyCompletion)
	}

	c.log.WithFields(logrus.Fields{
		"history": len(req.History),
		"length":  len(response.Content),
	}).Debug("completion generated")
	return response.Content, nil
}

func toSchemaMessages(history []Message) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return messages
}
