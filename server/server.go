// Package server веб интерфейс: загрузка архива с заявками, обработка и просмотр результата.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"innscanner/cache"
	"innscanner/config"
	"innscanner/logger"
	"innscanner/metrics"
	"innscanner/pipeline"
	"innscanner/registry"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ResponseState структура для унифицированного ответа
type ResponseState struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

// Статусы ответа
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Server HTTP сервер приложения
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	tables   cache.Cache[*registry.Table]
	metrics  *metrics.Service
	log      logger.Logger
	router   *gin.Engine

	// workspace общий для всех запросов, обработка и очистка идут по одной
	mu sync.Mutex
}

// New собирает сервер. Источник реестра закрывает вызывающий.
func New(cfg *config.Config, src registry.Source, rec *metrics.Service, log logger.Logger) (*Server, error) {
	if src == nil {
		return nil, errors.New("источник реестра не задан")
	}
	tables, err := cache.New[*registry.Table](cfg.TableCache())
	if err != nil {
		return nil, err
	}
	pages, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg: cfg,
		pipeline: &pipeline.Pipeline{
			Scanner:  newScanner(cfg, rec),
			Registry: src,
			Tables:   tables,
		},
		tables:  tables,
		metrics: rec,
		log:     log,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	router.SetHTMLTemplate(pages)
	router.MaxMultipartMemory = 32 << 20
	s.routes(router)
	s.router = router
	return s, nil
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/", s.index)
	router.POST("/upload", s.upload)
	router.POST("/process", s.process)
	router.POST("/cleanup", s.cleanup)

	router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	adminGroup := router.Group("/admin")
	{
		adminGroup.GET("/cache/metrics", s.getCacheMetrics)
		adminGroup.POST("/cache/clear", s.clearCache)
	}
}

// Handler корневой обработчик, удобен для тестов
func (s *Server) Handler() http.Handler { return s.router }

// Run слушает адрес из настроек до отмены контекста
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("Остановка сервера")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), s.log))
		c.Next()
		s.log.Debug("HTTP запрос",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
