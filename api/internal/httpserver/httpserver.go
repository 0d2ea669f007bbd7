package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cf-hints/api/internal/middleware"
)

// Routes is anything that mounts its handlers on a router.
type Routes interface {
	Register(r gin.IRoutes)
}

// NewRouter builds the gin engine with the shared middleware stack.
// A nil gatherer leaves /metrics unmounted.
func NewRouter(routes Routes, gatherer prometheus.Gatherer, origins []string, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Recovery(log), middleware.CORS(origins))
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	routes.Register(r)
	return r
}

// NewServer sizes the write timeout so a /save-data request that runs the
// whole pipeline is not cut off.
func NewServer(addr string, h http.Handler, pipelineTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      pipelineTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to grace.
func Run(ctx context.Context, srv *http.Server, grace time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

// Health answers /healthz with body and reports check failures as 503.
type Health struct {
	Body  string
	Check func(ctx context.Context) error
}

func (h Health) Register(r gin.IRoutes) {
	r.GET("/healthz", func(c *gin.Context) {
		if h.Check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Check(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, "not ok\n%s", err.Error())
				return
			}
		}
		c.String(http.StatusOK, h.Body)
	})
}
