// Package server provides the embeddable HTTP server for the reactive
// notebook: component assembly, routing, and lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/AJeffs1/reactive-notebook/internal/application/notebookapi"
	"github.com/AJeffs1/reactive-notebook/internal/application/observer"
	"github.com/AJeffs1/reactive-notebook/internal/config"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/api/rest"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/pyexec"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/storage"
	"github.com/AJeffs1/reactive-notebook/pkg/engine"
)

// Server is the notebook HTTP server.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	router     *gin.Engine
	httpServer *http.Server

	ops       *notebookapi.Operations
	store     *storage.Store
	observers *observer.Manager
	wsHandler *observer.WebSocketHandler
}

// Option configures the server during construction.
type Option func(*Server) error

// WithConfig supplies configuration instead of loading it from the
// environment.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) error {
		s.config = cfg
		return nil
	}
}

// WithLogger supplies a logger instead of building one from configuration.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) error {
		s.logger = l
		return nil
	}
}

// New creates a server with the given options.
func New(opts ...Option) (*Server, error) {
	s := &Server{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		s.config = cfg
	}

	if s.logger == nil {
		s.logger = logger.New(s.config.Logging)
		logger.SetDefault(s.logger)
	}

	if err := s.initComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) initComponents() error {
	executor, err := pyexec.New()
	if err != nil {
		return fmt.Errorf("start python backend: %w", err)
	}

	reactor := engine.NewReactor(executor)

	s.store = storage.NewStore(&storage.Config{
		MaxOpenConns:    s.config.Database.MaxOpenConns,
		MaxIdleConns:    s.config.Database.MaxIdleConns,
		ConnMaxLifetime: s.config.Database.ConnMaxLifetime,
		Debug:           s.config.Database.Debug,
	})
	if dsn := s.config.Database.DSN; dsn != "" {
		if err := s.store.Connect(context.Background(), dsn); err != nil {
			// Query cells fail individually until a connection is
			// configured over the API; the server still starts.
			s.logger.Warn("database connection failed", "error", err)
		}
	}

	s.ops = notebookapi.New(reactor, s.store, s.config.Notebook.File, s.logger)

	s.observers = observer.NewManager(observer.WithLogger(s.logger))
	if s.config.Observer.EnableLogger {
		_ = s.observers.Register(observer.NewLoggerObserver(
			observer.WithLoggerInstance(s.logger),
		))
	}
	if s.config.Observer.EnableWebSocket {
		hub := observer.NewWebSocketHub(s.logger)
		_ = s.observers.Register(observer.NewWebSocketObserver(hub,
			observer.WithWebSocketLogger(s.logger),
		))
		s.wsHandler = observer.NewWebSocketHandler(hub, s.logger)
		s.wsHandler.InitialState = func() any {
			return map[string]any{
				"cells":  s.ops.Cells(),
				"states": s.ops.States(),
			}
		}
	}

	s.ops.SetStatusSubscriber(s.observers.Subscriber())
	s.ops.CellsChanged = s.observers.NotifyCellsUpdated

	return nil
}

func (s *Server) setupRoutes() {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	if s.config.Server.CORS {
		router.Use(corsMiddleware())
	}

	cells := rest.NewCellHandlers(s.ops, s.logger)
	database := rest.NewDatabaseHandlers(s.ops, s.logger)

	router.GET("/health", cells.HandleHealth)

	router.GET("/cells", cells.HandleListCells)
	router.POST("/cells", cells.HandleCreateCell)
	router.POST("/cells/run-all", cells.HandleRunAll)
	router.POST("/cells/reset", cells.HandleReset)
	router.POST("/cells/save", cells.HandleSave)
	router.GET("/cells/graph", cells.HandleGraph)
	router.GET("/cells/:cell_id", cells.HandleGetCell)
	router.PUT("/cells/:cell_id", cells.HandleUpdateCell)
	router.DELETE("/cells/:cell_id", cells.HandleDeleteCell)
	router.POST("/cells/:cell_id/run", cells.HandleRunCell)

	router.POST("/config/db", database.HandleConnect)
	router.GET("/config/db", database.HandleStatus)
	router.DELETE("/config/db", database.HandleDisconnect)
	router.GET("/config/db/tables", database.HandleListTables)
	router.GET("/config/db/tables/:table_name", database.HandleTableSchema)

	if s.wsHandler != nil {
		router.GET("/ws", gin.WrapH(s.wsHandler))
	}

	s.router = router
}

// Router exposes the HTTP handler, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Operations exposes the service layer, used by tests and embedders.
func (s *Server) Operations() *notebookapi.Operations {
	return s.ops
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts down
// gracefully, saving the notebook.
func (s *Server) Run() error {
	if err := s.ops.LoadNotebook(); err != nil {
		s.logger.Warn("starting with empty notebook", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("forced shutdown", "error", err)
	}
	if err := s.ops.SaveNotebook(); err != nil {
		s.logger.Error("failed to save notebook on shutdown", "error", err)
	}
	s.store.Close()

	s.logger.Info("notebook saved, goodbye")
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
