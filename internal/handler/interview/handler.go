package interview

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/mock-interview/backend/internal/analysis/speech"
	interviewService "github.com/zhouzirui/mock-interview/backend/internal/service/interview"
	"github.com/zhouzirui/mock-interview/backend/pkg/utils"
)

const (
	msgSessionNotFound = "Session not found"
	msgReportFailed    = "Could not generate report."
)

// Handler 面试流程的HTTP处理器
type Handler struct {
	svc     *interviewService.Service
	lexicon *speech.Lexicon
	log     *logrus.Entry
}

// New 创建面试处理器。lexicon 为空时使用默认填充词。
func New(svc *interviewService.Service, lexicon *speech.Lexicon) *Handler {
	if lexicon == nil {
		lexicon = speech.NewLexicon(speech.DefaultFillers)
	}
	return &Handler{
		svc:     svc,
		lexicon: lexicon,
		log:     logrus.WithField("component", "http"),
	}
}

// RegisterRoutes 注册面试相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/feedback", h.handleFeedback)
	r.Get("/sessions/{sessionId}", h.handleGetSession)
	r.Put("/sessions/{sessionId}", h.handleRestartSession)
	r.Post("/analytics", h.handleAnalytics)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	JobRole   string `json:"jobRole"`
}

// handleChat 推进一轮对话，失败时仍返回兜底问题
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.SessionID = strings.TrimSpace(payload.SessionID)
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.svc.AdvanceTurn(r.Context(), payload.SessionID, payload.Message, payload.JobRole)
	if errors.Is(err, interviewService.ErrEmptyAnswer) || errors.Is(err, interviewService.ErrSessionIDRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("session", payload.SessionID).Warn("chat turn fell back")
		utils.RespondJSON(w, http.StatusInternalServerError, result)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleFeedback 生成最终报告
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.svc.GenerateReport(r.Context(), strings.TrimSpace(payload.SessionID))
	switch {
	case errors.Is(err, interviewService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, msgSessionNotFound)
	case err != nil:
		h.log.WithError(err).WithField("session", payload.SessionID).Error("report failed")
		utils.RespondError(w, http.StatusInternalServerError, msgReportFailed)
	default:
		utils.RespondJSON(w, http.StatusOK, report)
	}
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.Session(chi.URLParam(r, "sessionId"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleRestartSession 以新的岗位重新开始会话，原有记录被丢弃
func (h *Handler) handleRestartSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobRole string `json:"jobRole"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := h.svc.Restart(strings.TrimSpace(chi.URLParam(r, "sessionId")), payload.JobRole)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

type analyticsRequest struct {
	Transcript string `json:"transcript"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// handleAnalytics 计算语速与填充词数量
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var payload analyticsRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ElapsedMs < 0 {
		utils.RespondError(w, http.StatusBadRequest, "elapsedMs must not be negative")
		return
	}

	stats := h.lexicon.Analyze(payload.Transcript, time.Duration(payload.ElapsedMs)*time.Millisecond)
	utils.RespondJSON(w, http.StatusOK, stats)
}
