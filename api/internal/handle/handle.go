package handle

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cf-hints/api/internal/ingest"
	"cf-hints/api/internal/store"
)

// Saver accepts one submitted part.
type Saver interface {
	Save(ctx context.Context, sub ingest.Submission) (ingest.SaveResult, error)
}

type Handle struct {
	saver Saver
	hints store.HintStore
	log   *zap.Logger
}

func New(saver Saver, hints store.HintStore, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{saver: saver, hints: hints, log: log}
}

// Register mounts the extension-facing endpoints.
func (h *Handle) Register(r gin.IRoutes) {
	r.POST("/save-data", h.SaveData)
	r.GET("/check-hints", h.CheckHints)
	r.GET("/get-hints", h.GetHints)
	r.GET("/status", h.Status)
	r.GET("/healthz", h.Healthz)
}

func errorJSON(c *gin.Context, code int, msg string, extra ...any) {
	body := gin.H{"error": msg}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			body[k] = extra[i+1]
		}
	}
	c.JSON(code, body)
}

// problemCode reads and checks the problemCode query parameter.
// It writes the 400 response itself and returns false on failure.
func problemCode(c *gin.Context) (string, bool) {
	code := c.Query("problemCode")
	if code == "" {
		errorJSON(c, http.StatusBadRequest, "Missing problemCode parameter")
		return "", false
	}
	if !store.ValidID(code) {
		errorJSON(c, http.StatusBadRequest, "Invalid problemCode parameter", "problemCode", code)
		return "", false
	}
	return code, true
}
