package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	model "github.com/zhouzirui/mock-interview/backend/internal/model/interview"
	"github.com/zhouzirui/mock-interview/backend/internal/service/completion"
	"github.com/zhouzirui/mock-interview/backend/internal/service/session"
)

const (
	FallbackTip      = "Error connecting to AI."
	FallbackQuestion = "Let's move on. Tell me about your strengths."
	DefaultJobRole   = "Software Engineer"
)

var (
	ErrMalformedResponse      = errors.New("malformed completion response")
	ErrReportGenerationFailed = errors.New("report generation failed")
	ErrSessionNotFound        = session.ErrSessionNotFound
	ErrSessionIDRequired      = session.ErrSessionIDRequired
	ErrEmptyAnswer            = errors.New("candidate answer is empty")
)

// Fallback 在一轮对话无法完成时返回给候选人
func Fallback() model.TurnResult {
	return model.TurnResult{Tip: FallbackTip, NextQuestion: FallbackQuestion}
}

// Config 面试编排配置
type Config struct {
	Prompts           Prompts
	CompletionTimeout time.Duration
}

// Service 驱动面试会话：负责轮次顺序、调用补全后端并校验返回内容。
type Service struct {
	sessions *session.Store
	client   completion.Client
	prompts  Prompts
	log      *logrus.Entry
}

// NewService 创建面试编排服务
func NewService(sessions *session.Store, client completion.Client, cfg Config) *Service {
	prompts := cfg.Prompts
	if prompts == (Prompts{}) {
		prompts = DefaultPrompts()
	}

	return &Service{
		sessions: sessions,
		client:   completion.WithTimeout(client, cfg.CompletionTimeout),
		prompts:  prompts,
		log:      logrus.WithField("component", "interview"),
	}
}

// Start 按需初始化会话并返回句柄。对已有 id 重复调用不做任何事，岗位保持首次给定的值。
func (s *Service) Start(sessionID, jobRole string) (*session.Handle, bool, error) {
	requested := strings.TrimSpace(jobRole)
	role := requested
	if role == "" {
		role = DefaultJobRole
	}
	seed := model.Turn{Role: model.RoleInterviewer, Text: s.prompts.seed(role)}

	handle, created, err := s.sessions.Start(sessionID, role, seed)
	if err != nil {
		return nil, false, err
	}
	if !created && requested != "" && requested != handle.JobRole() {
		s.log.WithFields(logrus.Fields{
			"session":   sessionID,
			"jobRole":   handle.JobRole(),
			"requested": requested,
		}).Warn("job role is fixed for the session, ignoring new role")
	}
	return handle, created, nil
}

// Restart 丢弃 sessionID 的现有记录，以新的岗位重新开始。
func (s *Service) Restart(sessionID, jobRole string) (model.Session, error) {
	role := strings.TrimSpace(jobRole)
	if role == "" {
		role = DefaultJobRole
	}

	handle, err := s.sessions.Replace(sessionID, role, model.Turn{Role: model.RoleInterviewer, Text: s.prompts.seed(role)})
	if err != nil {
		return model.Session{}, err
	}
	return handle.Snapshot(), nil
}

// ActiveSessions 返回当前存活的会话数
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

// Session 返回会话副本
func (s *Service) Session(sessionID string) (model.Session, error) {
	snapshot, ok := s.sessions.Get(sessionID)
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return snapshot, nil
}

// AdvanceTurn 记录候选人的回答，并向后端索取提示与下一个问题。
// 后端或解析失败时返回 Fallback 和错误，记录中只保留候选人这一轮。
func (s *Service) AdvanceTurn(ctx context.Context, sessionID, candidateText, jobRole string) (model.TurnResult, error) {
	answer := strings.TrimSpace(candidateText)
	if answer == "" {
		return model.TurnResult{}, ErrEmptyAnswer
	}

	handle, _, err := s.Start(sessionID, jobRole)
	if err != nil {
		return model.TurnResult{}, err
	}

	log := s.log.WithField("session", sessionID)

	// 排队等待期间 ctx 结束，同样按后端不可用处理
	if err := handle.Acquire(ctx); err != nil {
		log.WithError(err).Warn("gave up waiting for the session, using fallback")
		return Fallback(), fmt.Errorf("%w: %w", completion.ErrBackendUnavailable, err)
	}
	defer handle.Release()

	// 末尾是候选人轮次说明上一次走了兜底，把这次的回答并入其中
	if !handle.AmendLast(model.RoleCandidate, answer) {
		handle.Append(model.Turn{Role: model.RoleCandidate, Text: answer})
	}
	s.sessions.Touch(sessionID)

	req := s.buildTurnRequest(handle.Snapshot())
	raw, err := s.client.Complete(ctx, req)
	if err != nil {
		log.WithError(err).Error("completion failed, using fallback")
		return Fallback(), err
	}

	result, err := parseTurnReply(raw)
	if err != nil {
		log.WithError(err).WithField("raw", truncateForLog(raw)).Error("unusable completion, using fallback")
		return Fallback(), err
	}

	handle.Append(model.Turn{Role: model.RoleInterviewer, Text: result.NextQuestion})
	s.sessions.Touch(sessionID)

	log.Info("turn advanced")
	return result, nil
}

// GenerateReport 向后端请求最终评估。失败时直接返回错误，不会给出默认报告。
func (s *Service) GenerateReport(ctx context.Context, sessionID string) (model.FinalReport, error) {
	handle, ok := s.sessions.Handle(sessionID)
	if !ok {
		return model.FinalReport{}, ErrSessionNotFound
	}

	if err := handle.Acquire(ctx); err != nil {
		return model.FinalReport{}, fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}
	snapshot := handle.Snapshot()
	handle.Release()

	log := s.log.WithFields(logrus.Fields{"session": sessionID, "answers": snapshot.CandidateTurns()})

	raw, err := s.client.Complete(ctx, s.buildReportRequest(snapshot))
	if err != nil {
		log.WithError(err).Error("report completion failed")
		return model.FinalReport{}, fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}

	report, err := parseReport(raw)
	if err != nil {
		log.WithError(err).WithField("raw", truncateForLog(raw)).Error("unusable report")
		return model.FinalReport{}, fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}

	log.WithField("score", report.Score).Info("report generated")
	return report, nil
}

// buildTurnRequest 以种子轮为系统提示，之前的轮次为历史，最新回答套进本轮指令。
func (s *Service) buildTurnRequest(snapshot model.Session) completion.Request {
	turns := snapshot.Turns
	req := completion.Request{}
	if len(turns) > 0 && turns[0].Role == model.RoleInterviewer {
		req.System = turns[0].Text
		turns = turns[1:]
	}

	var answer string
	if n := len(turns); n > 0 && turns[n-1].Role == model.RoleCandidate {
		answer = turns[n-1].Text
		turns = turns[:n-1]
	}

	req.History = toHistory(turns)
	req.Prompt = s.prompts.turn(answer)
	return req
}

func (s *Service) buildReportRequest(snapshot model.Session) completion.Request {
	turns := snapshot.Turns
	if len(turns) > 0 && turns[0].Role == model.RoleInterviewer {
		turns = turns[1:]
	}

	return completion.Request{
		System: s.prompts.reportSystem(snapshot.JobRole),
		Prompt: s.prompts.report(formatTranscript(turns)),
	}
}

func toHistory(turns []model.Turn) []completion.Message {
	history := make([]completion.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case model.RoleInterviewer:
			history = append(history, completion.Message{Role: completion.RoleAssistant, Content: turn.Text})
		case model.RoleCandidate:
			history = append(history, completion.Message{Role: completion.RoleUser, Content: turn.Text})
		}
	}
	return history
}

func formatTranscript(turns []model.Turn) string {
	if len(turns) == 0 {
		return "(the candidate gave no answers)"
	}

	var builder strings.Builder
	for i, turn := range turns {
		if i > 0 {
			builder.WriteString("\n")
		}
		switch turn.Role {
		case model.RoleInterviewer:
			builder.WriteString("Interviewer: ")
		default:
			builder.WriteString("Candidate: ")
		}
		builder.WriteString(turn.Text)
	}
	return builder.String()
}

func truncateForLog(raw string) string {
	const limit = 256
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit] + "..."
}
