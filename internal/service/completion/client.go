package completion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrBackendUnavailable = errors.New("completion backend unavailable")
	ErrEmptyCompletion    = errors.New("completion backend returned no content")
)

// Role 从后端视角标识历史消息的说话方
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 作为对话历史发送的一条消息
type Message struct {
	Role    Role
	Content string
}

// Request 一次无状态的补全调用
type Request struct {
	System  string
	History []Message
	Prompt  string
}

// Client 把提示与历史发给文本生成后端并返回原始文本。
// 实现不包含业务规则，也不重试。
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

func unavailable(err error) error {
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout 限制每次调用 next 的时长。超时或无视取消的调用按 ErrBackendUnavailable 返回，
// 迟到的结果直接丢弃。
func WithTimeout(next Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.next.Complete(ctx, req)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", unavailable(res.err)
		}
		return res.text, nil
	case <-ctx.Done():
		return "", unavailable(ctx.Err())
	}
}

// Disabled 在未配置后端时使用，每次调用都返回 ErrBackendUnavailable。
type Disabled struct {
	Reason string
}

func (d Disabled) Complete(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, d.Reason)
}
