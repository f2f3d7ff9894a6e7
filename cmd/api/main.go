package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/mock-interview/backend/internal/analysis/speech"
	"github.com/zhouzirui/mock-interview/backend/internal/config"
	"github.com/zhouzirui/mock-interview/backend/internal/handler"
	"github.com/zhouzirui/mock-interview/backend/internal/service/completion"
	"github.com/zhouzirui/mock-interview/backend/internal/service/interview"
	"github.com/zhouzirui/mock-interview/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	setupLogging(cfg.Log)

	prompts, err := interview.LoadPrompts(cfg.Interview.PromptsFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load prompts")
	}

	store := session.NewStore(session.Options{
		MaxSessions: cfg.Interview.MaxSessions,
		TTL:         cfg.Interview.SessionTTL,
	})

	svc := interview.NewService(store, newCompletionClient(ctx, cfg.AI), interview.Config{
		Prompts:           prompts,
		CompletionTimeout: cfg.Interview.CompletionTimeout,
	})

	var lexicon *speech.Lexicon
	if len(cfg.Interview.FillerWords) > 0 {
		lexicon = speech.NewLexicon(cfg.Interview.FillerWords)
	}

	router := handler.NewRouter(svc, lexicon, cfg.Server.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newCompletionClient 按配置选择补全后端；未配置凭证时所有轮次走兜底。
func newCompletionClient(ctx context.Context, cfg config.AIConfig) completion.Client {
	log := logrus.WithField("provider", cfg.Provider)
	if !cfg.Enabled() {
		log.Warn("AI 凭证未配置，所有对话将返回兜底问题")
		return completion.Disabled{Reason: "no credentials configured for " + string(cfg.Provider)}
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := completion.NewOpenAIClient(completion.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			log.WithError(err).Warn("failed to initialize completion client")
			return completion.Disabled{Reason: err.Error()}
		}
		log.WithField("model", cfg.OpenAIModel).Info("completion client initialized")
		return client
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to initialize ark chat model")
			return completion.Disabled{Reason: err.Error()}
		}
		client, err := completion.NewChainClient(ctx, chatModel)
		if err != nil {
			log.WithError(err).Warn("failed to compile completion chain")
			return completion.Disabled{Reason: err.Error()}
		}
		log.WithField("model", cfg.Model).Info("completion client initialized")
		return client
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logrus.WithField("addr", addr).Info("mock interview backend listening")
	if err := runServer(ctx, srv); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logrus.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
