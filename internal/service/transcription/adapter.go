package transcription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrAlreadyRecording = errors.New("an utterance is already being recorded")

// Utterance 目前已识别的文本及其计时
type Utterance struct {
	Text      string
	StartedAt time.Time
	Elapsed   time.Duration
}

// Listener 接收适配器事件。回调运行在适配器的 goroutine 上，不能调用 Stop。
type Listener interface {
	OnPartial(u Utterance)
	OnFinal(u Utterance)
	OnEnd()
}

// Adapter 把 Recognizer 转成发言事件：若干 partial，至多一个 final，最后 end。
// 同一时间只有一段发言在进行。
type Adapter struct {
	recognizer Recognizer
	listener   Listener
	now        func() time.Time
	log        *logrus.Entry

	mu        sync.Mutex
	recording bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// emitMu 保证 Stop 返回后不会再投递任何 partial/final。
	emitMu  sync.Mutex
	stopped bool
}

// Option 配置 Adapter
type Option func(*Adapter)

// WithClock 替换发言时间戳使用的时钟
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAdapter 创建转写适配器。
func NewAdapter(recognizer Recognizer, listener Listener, opts ...Option) *Adapter {
	a := &Adapter{
		recognizer: recognizer,
		listener:   listener,
		now:        time.Now,
		log:        logrus.WithField("component", "transcription"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recording 表示是否有发言正在进行
func (a *Adapter) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

// Start 开始一段新的发言
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recording {
		return ErrAlreadyRecording
	}

	uctx, cancel := context.WithCancel(ctx)
	results, err := a.recognizer.Recognize(uctx)
	if err != nil {
		cancel()
		return err
	}

	a.emitMu.Lock()
	a.stopped = false
	a.emitMu.Unlock()

	a.recording = true
	a.startedAt = a.now()
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.consume(uctx, results, a.startedAt, a.done)
	return nil
}

// Stop 结束当前发言并丢弃已识别的内容，Listener 只会收到 OnEnd。
// Stop 在 OnEnd 执行完后返回；空闲时什么也不做。
func (a *Adapter) Stop() {
	a.mu.Lock()
	if !a.recording {
		a.mu.Unlock()
		return
	}
	a.emitMu.Lock()
	a.stopped = true
	a.emitMu.Unlock()

	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	cancel()
	<-done
}

func (a *Adapter) consume(ctx context.Context, results <-chan Result, startedAt time.Time, done chan struct{}) {
	defer close(done)
	defer a.finish()

	final := false
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if final {
				a.log.WithField("kind", res.Kind).Debug("result after final dropped")
				continue
			}
			if res.Kind == ResultFinal {
				final = true
			}
			a.emit(res, startedAt)
		}
	}
}

func (a *Adapter) emit(res Result, startedAt time.Time) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	if a.stopped {
		return
	}

	u := Utterance{Text: res.Text, StartedAt: startedAt, Elapsed: a.now().Sub(startedAt)}
	switch res.Kind {
	case ResultFinal:
		a.listener.OnFinal(u)
	default:
		a.listener.OnPartial(u)
	}
}

func (a *Adapter) finish() {
	a.mu.Lock()
	a.recording = false
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.listener.OnEnd()
}
