package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/mock-interview/backend/internal/model/interview"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
)

// Options 限制会话存储。MaxSessions 为 0 表示不限数量，TTL 为 0 表示不过期。
type Options struct {
	MaxSessions int
	TTL         time.Duration
	// Now 只用于会话与轮次的时间戳；过期判断始终基于系统时钟。
	Now func() time.Time
}

// Store 在进程内保存面试会话。超过 MaxSessions 时淘汰最久未使用的会话，
// 超过 TTL 未被触碰的会话自动过期。
type Store struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Handle]
	now   func() time.Time
	log   *logrus.Entry
}

// NewStore 创建有界会话存储
func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	log := logrus.WithField("component", "session")
	onEvict := func(id string, _ *Handle) {
		log.WithField("session", id).Info("session evicted")
	}

	return &Store{
		cache: expirable.NewLRU[string, *Handle](opts.MaxSessions, onEvict, opts.TTL),
		now:   now,
		log:   log,
	}
}

// Start 返回 id 对应的句柄，不存在时用 seed 轮次创建。created 表示本次调用是否新建了会话。
func (s *Store) Start(id, jobRole string, seed ...interview.Turn) (*Handle, bool, error) {
	if id == "" {
		return nil, false, ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if handle, ok := s.cache.Get(id); ok {
		return handle, false, nil
	}

	handle := s.newHandle(id, jobRole, seed)
	s.cache.Add(id, handle)
	s.log.WithFields(logrus.Fields{"session": id, "jobRole": jobRole}).Info("session started")
	return handle, true, nil
}

// Replace 丢弃 id 现有的状态并重新开始。
func (s *Store) Replace(id, jobRole string, seed ...interview.Turn) (*Handle, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := s.newHandle(id, jobRole, seed)
	s.cache.Add(id, handle)
	s.log.WithFields(logrus.Fields{"session": id, "jobRole": jobRole}).Info("session replaced")
	return handle, nil
}

// Handle 查找 id 对应的句柄
func (s *Store) Handle(id string) (*Handle, bool) {
	return s.cache.Get(id)
}

// Get 返回会话的副本
func (s *Store) Get(id string) (interview.Session, bool) {
	handle, ok := s.cache.Get(id)
	if !ok {
		return interview.Session{}, false
	}
	return handle.Snapshot(), true
}

// Touch 刷新 id 的过期时间（若仍在存储中）
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if handle, ok := s.cache.Peek(id); ok {
		s.cache.Add(id, handle)
	}
}

// Len 返回存活会话数
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) newHandle(id, jobRole string, seed []interview.Turn) *Handle {
	now := s.now().UTC()
	handle := &Handle{
		turn: make(chan struct{}, 1),
		now:  s.now,
		session: interview.Session{
			ID:        id,
			JobRole:   jobRole,
			Turns:     make([]interview.Turn, 0, 16),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, turn := range seed {
		handle.Append(turn)
	}
	return handle
}

// Handle 是已初始化会话的引用。Acquire/Release 串行化一轮对话的读-调用-追加过程，
// Snapshot 读取不会等待它。
type Handle struct {
	// 单槽信号量，阻塞的发送方按到达顺序被唤醒
	turn chan struct{}

	mu      sync.RWMutex
	session interview.Session
	now     func() time.Time
}

// Acquire 按到达顺序等待独占会话，或等到 ctx 结束。
func (h *Handle) Acquire(ctx context.Context) error {
	select {
	case h.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 结束 Acquire 开始的独占区
func (h *Handle) Release() {
	<-h.turn
}

// JobRole 返回会话创建时确定的岗位
func (h *Handle) JobRole() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session.JobRole
}

// Snapshot 返回会话的深拷贝
func (h *Handle) Snapshot() interview.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session.Clone()
}

// Append 追加一轮对话，缺省时补上 id 与时间戳。
func (h *Handle) Append(turn interview.Turn) interview.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now().UTC()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = now
	}

	h.session.Turns = append(h.session.Turns, turn)
	h.session.UpdatedAt = now
	return turn
}

// AmendLast 在最后一轮属于 role 时把 text 接到它后面，否则不改动并返回 false。
func (h *Handle) AmendLast(role interview.Role, text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.session.Turns)
	if n == 0 || h.session.Turns[n-1].Role != role {
		return false
	}

	h.session.Turns[n-1].Text += "\n" + text
	h.session.UpdatedAt = h.now().UTC()
	return true
}
