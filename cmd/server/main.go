package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/whiteboard/internal/auth"
	"github.com/inamate/whiteboard/internal/config"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/export"
	"github.com/inamate/whiteboard/internal/hub"
	"github.com/inamate/whiteboard/internal/metrics"
	mw "github.com/inamate/whiteboard/internal/middleware"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/validation"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo store.Repository
	switch cfg.Storage {
	case "memory":
		slog.Warn("using in-memory storage; boards are lost on restart")
		repo = store.NewMemory()
	default:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		repo = store.NewBreaker(pg, store.DefaultBreakerConfig())
	}

	collector := metrics.New()

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)
	boardHandler := store.NewHandler(repo)

	// Document loader for the collaboration hub
	docLoader := func(ctx context.Context, boardID string) (*document.Document, error) {
		snap, err := repo.LatestSnapshot(ctx, boardID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return snap.Document, nil
	}

	// Document saver for the collaboration hub
	docSaver := func(ctx context.Context, boardID string, doc *document.Document) error {
		if _, err := repo.SaveSnapshot(ctx, boardID, doc); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	}

	boards := hub.NewHub(docLoader, docSaver, hub.Options{
		Editor: editor.Options{
			HistoryLimit:      cfg.HistoryLimit,
			DeleteEmptyGroups: cfg.DeleteEmptyGroups,
		},
		SaveInterval: cfg.SaveInterval,
		Metrics:      collector,
	})

	// Export renders the live document when the board is open.
	exportHandler := export.NewHandler(func(ctx context.Context, boardID string) (*document.Document, error) {
		if doc, ok := boards.Document(ctx, boardID); ok {
			return doc, nil
		}
		snap, err := repo.LatestSnapshot(ctx, boardID)
		if err != nil {
			return nil, err
		}
		return snap.Document, nil
	})

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))
	r.Use(mw.Metrics(collector))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", collector.Handler()).Methods("GET")

	// Auth routes (public)
	r.HandleFunc("/auth/guest", authHandler.Guest).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/boards", boardHandler.List).Methods("GET")
	api.HandleFunc("/boards", boardHandler.Create).Methods("POST")
	api.HandleFunc("/boards/{boardId}", boardHandler.Get).Methods("GET")
	api.HandleFunc("/boards/{boardId}", boardHandler.Delete).Methods("DELETE")
	api.HandleFunc("/boards/{boardId}/snapshots/latest", boardHandler.LatestSnapshot).Methods("GET")
	api.HandleFunc("/boards/{boardId}/export.png", exportHandler.ExportPNG).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, boards, authService, repo, cfg.OriginPatterns())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all open boards
		boards.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.Storage)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, boards *hub.Hub, authSvc *auth.Service, repo store.Repository, origins []string) {
	boardID := mux.Vars(r)["boardId"]
	if err := validation.Var(boardID, "required,boardid"); err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	// Auth via query param; browsers cannot set headers on websocket requests
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := repo.GetBoard(r.Context(), boardID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		slog.Error("get board", "board", boardID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := hub.NewClient(boards, conn, user.ID, user.DisplayName, boardID, uuid.New().String())
	if err := boards.Register(r.Context(), client); err != nil {
		slog.Error("register client", "board", boardID, "error", err)
		conn.Close(websocket.StatusTryAgainLater, "board unavailable")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
