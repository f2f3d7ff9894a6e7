package transcription

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotRecording = errors.New("no utterance in progress")
	ErrFeedFull     = errors.New("recognizer feed is full")
)

// ResultKind 区分中间结果与最终结果。
type ResultKind string

const (
	ResultPartial ResultKind = "partial"
	ResultFinal   ResultKind = "final"
)

// Result 当前发言的一条识别结果
type Result struct {
	Kind ResultKind
	Text string
}

// Recognizer 是 Adapter 背后的语音识别引擎。Recognize 开始一段发言，
// 发言结束或 ctx 取消时关闭返回的 channel。
type Recognizer interface {
	Recognize(ctx context.Context) (<-chan Result, error)
}

const feedBuffer = 64

// FeedRecognizer 由外部推送文本驱动，例如浏览器语音接口经 websocket 转发的识别结果。
type FeedRecognizer struct {
	mu      sync.Mutex
	current chan Result
}

// NewFeedRecognizer 创建一个由外部推送文本驱动的识别器。
func NewFeedRecognizer() *FeedRecognizer {
	return &FeedRecognizer{}
}

// Recognize 打开一段新发言，仍未结束的上一段会先被关闭。
func (f *FeedRecognizer) Recognize(ctx context.Context) (<-chan Result, error) {
	ch := make(chan Result, feedBuffer)

	f.mu.Lock()
	f.closeLocked()
	f.current = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.current == ch {
			f.closeLocked()
		}
		f.mu.Unlock()
	}()

	return ch, nil
}

// Partial 推送中间结果
func (f *FeedRecognizer) Partial(text string) error {
	return f.push(Result{Kind: ResultPartial, Text: text}, false)
}

// Final 推送最终结果并结束本段发言
func (f *FeedRecognizer) Final(text string) error {
	return f.push(Result{Kind: ResultFinal, Text: text}, true)
}

// Close 结束当前发言，不产生最终结果
func (f *FeedRecognizer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *FeedRecognizer) push(res Result, last bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return ErrNotRecording
	}

	select {
	case f.current <- res:
	default:
		return ErrFeedFull
	}

	if last {
		f.closeLocked()
	}
	return nil
}

func (f *FeedRecognizer) closeLocked() {
	if f.current != nil {
		close(f.current)
		f.current = nil
	}
}
