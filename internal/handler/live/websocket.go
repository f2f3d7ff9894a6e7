package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/mock-interview/backend/internal/analysis/speech"
	model "github.com/zhouzirui/mock-interview/backend/internal/model/interview"
	interviewService "github.com/zhouzirui/mock-interview/backend/internal/service/interview"
	"github.com/zhouzirui/mock-interview/backend/internal/service/transcription"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second

	// 最多排队的待处理回答数
	pendingAnswers = 8
)

// 出站消息类型
const (
	TypeFeedback = "feedback"
	TypeTurn     = "turn"
	TypeSpeak    = "speak"
	TypeEnd      = "end"
	TypeError    = "error"
)

// Handler 实时面试 WebSocket 处理器
type Handler struct {
	svc      *interviewService.Service
	lexicon  *speech.Lexicon
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New 创建实时处理器。lexicon 为空时使用默认填充词。
func New(svc *interviewService.Service, lexicon *speech.Lexicon) *Handler {
	if lexicon == nil {
		lexicon = speech.NewLexicon(speech.DefaultFillers)
	}
	return &Handler{
		svc:     svc,
		lexicon: lexicon,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logrus.WithField("component", "live"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionId}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection 串行化写操作，gorilla 只允许一个并发写者
type connection struct {
	ws        *websocket.Conn
	sessionID string
	log       *logrus.Entry

	mu sync.Mutex
}

func (c *connection) send(msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		c.log.WithError(err).WithField("type", msgType).Debug("write failed")
	}
}

func (c *connection) sendError(message string) {
	c.send(TypeError, map[string]string{"message": message})
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理一次实时面试连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	handle, _, err := h.svc.Start(sessionID, r.URL.Query().Get("jobRole"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer ws.Close()

	log := h.log.WithField("session", sessionID)
	log.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	conn := &connection{ws: ws, sessionID: sessionID, log: log}
	live := newLiveSession(ctx, h, conn, sessionID, handle.JobRole())
	defer func() {
		cancel()
		live.close()
		log.Info("connection closed")
	}()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("read error")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			conn.sendError("session mismatch")
			continue
		}

		live.handle(ctx, &msg)
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

// liveSession 把一条连接绑定到转写适配器与面试编排
type liveSession struct {
	h         *Handler
	conn      *connection
	sessionID string
	jobRole   string

	feed    *transcription.FeedRecognizer
	adapter *transcription.Adapter

	mu      sync.Mutex
	lastTip string

	answers chan string
	wg      sync.WaitGroup
}

func newLiveSession(ctx context.Context, h *Handler, conn *connection, sessionID, jobRole string) *liveSession {
	s := &liveSession{
		h:         h,
		conn:      conn,
		sessionID: sessionID,
		jobRole:   jobRole,
		feed:      transcription.NewFeedRecognizer(),
		answers:   make(chan string, pendingAnswers),
	}
	s.adapter = transcription.NewAdapter(s.feed, s)

	s.wg.Add(1)
	go s.run(ctx)
	return s
}

func (s *liveSession) handle(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case "start":
		if err := s.adapter.Start(ctx); err != nil {
			s.conn.sendError(err.Error())
		}
	case "partial", "final":
		var payload textPayload
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &payload) != nil {
			s.conn.sendError("invalid " + msg.Type + " payload")
			return
		}
		if err := s.push(msg.Type, payload.Text); err != nil {
			s.conn.sendError(err.Error())
		}
	case "stop":
		s.adapter.Stop()
	default:
		s.conn.sendError("unsupported message type: " + msg.Type)
	}
}

func (s *liveSession) push(kind, text string) error {
	if !s.adapter.Recording() {
		return transcription.ErrNotRecording
	}
	if kind == "final" {
		return s.feed.Final(text)
	}
	return s.feed.Partial(text)
}

// OnPartial 推送实时语速与填充词统计
func (s *liveSession) OnPartial(u transcription.Utterance) {
	s.conn.send(TypeFeedback, s.feedback(u))
}

// OnFinal 推送最终统计，并把回答交给面试流程
func (s *liveSession) OnFinal(u transcription.Utterance) {
	s.conn.send(TypeFeedback, s.feedback(u))

	if strings.TrimSpace(u.Text) == "" {
		return
	}
	select {
	case s.answers <- u.Text:
	default:
		s.conn.sendError("too many pending answers")
	}
}

// OnEnd 通知客户端本次发言结束
func (s *liveSession) OnEnd() {
	s.conn.send(TypeEnd, nil)
}

func (s *liveSession) feedback(u transcription.Utterance) model.LiveFeedback {
	stats := s.h.lexicon.Analyze(u.Text, u.Elapsed)

	s.mu.Lock()
	defer s.mu.Unlock()
	return model.LiveFeedback{WPM: stats.WPM, FillerCount: stats.FillerCount, AITip: s.lastTip}
}

// run 逐个把最终回答交给面试编排
func (s *liveSession) run(ctx context.Context) {
	defer s.wg.Done()

	for answer := range s.answers {
		result, err := s.h.svc.AdvanceTurn(ctx, s.sessionID, answer, s.jobRole)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			s.conn.log.WithError(err).Warn("live turn fell back")
		}

		s.mu.Lock()
		s.lastTip = result.Tip
		s.mu.Unlock()

		s.conn.send(TypeTurn, result)
		s.conn.send(TypeSpeak, map[string]string{"text": result.NextQuestion})
	}
}

func (s *liveSession) close() {
	s.adapter.Stop()
	close(s.answers)
	s.wg.Wait()
}
