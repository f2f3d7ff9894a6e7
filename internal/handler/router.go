package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/mock-interview/backend/internal/analysis/speech"
	"github.com/zhouzirui/mock-interview/backend/internal/handler/interview"
	"github.com/zhouzirui/mock-interview/backend/internal/handler/live"
	middlewarePkg "github.com/zhouzirui/mock-interview/backend/internal/middleware"
	interviewService "github.com/zhouzirui/mock-interview/backend/internal/service/interview"
	"github.com/zhouzirui/mock-interview/backend/pkg/utils"
)

// NewRouter 把 HTTP 路由接到核心服务
func NewRouter(svc *interviewService.Service, lexicon *speech.Lexicon, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logrus.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": svc.ActiveSessions()})
	})

	// REST 接口
	interview.New(svc, lexicon).RegisterRoutes(r)

	// 实时转写与反馈
	live.New(svc, lexicon).RegisterRoutes(r)

	return r
}
