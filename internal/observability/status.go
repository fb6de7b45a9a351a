package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

type State string

const (
	StateStarting   State = "starting"
	StateListening  State = "listening"
	StateConnecting State = "connecting"
	StateRelaying   State = "relaying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Stats is a point-in-time view of one relay run.
type Stats struct {
	Role   string `json:"role"`
	State  State  `json:"state"`
	Frames uint64 `json:"frames"`
	Bytes  uint64 `json:"bytes"`
}

type Reporter interface {
	Snapshot() Stats
}

var ginModeOnce sync.Once

// StatusServer exposes /health, /ready and /metrics for a running relay.
type StatusServer struct {
	Addr    string
	Started time.Time

	reporter Reporter
	router   *gin.Engine
	logger   zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewStatusServer(addr string, corsOrigins []string, reporter Reporter, logger zerolog.Logger) *StatusServer {
	ginModeOnce.Do(func() {
		// stdout may be the relay sink
		gin.SetMode(gin.ReleaseMode)
		gin.DefaultWriter = os.Stderr
		gin.DefaultErrorWriter = os.Stderr
	})
	RegisterMetrics()

	role := reporter.Snapshot().Role
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger, reporter))
	r.Use(RequestMetricsMiddleware(role))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &StatusServer{
		Addr:     addr,
		Started:  time.Now(),
		reporter: reporter,
		router:   r,
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *StatusServer) Router() *gin.Engine {
	return s.router
}

func (s *StatusServer) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		stats := s.reporter.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"role":    stats.Role,
			"version": version,
			"relay":   stats,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		stats := s.reporter.Snapshot()
		ready := stats.State == StateListening || stats.State == StateRelaying
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"state":   stats.State,
			"uptime":  time.Since(s.Started).String(),
			"role":    stats.Role,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start binds Addr and serves in the background.
func (s *StatusServer) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.Addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info().Str("addr", s.Addr).Msg("status endpoint listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn().Err(err).Msg("status endpoint stopped")
		}
	}()
	return nil
}

func (s *StatusServer) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
