package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cf-hints/api/internal/store"
)

func (h *Handle) GetHints(c *gin.Context) {
	code, ok := problemCode(c)
	if !ok {
		return
	}
	hs, err := h.hints.Read(c.Request.Context(), code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "Hints not found for this problem", "problemCode", code)
		return
	case err != nil:
		h.log.Error("get-hints failed", zap.String("problem_code", code), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Error reading hints file: "+err.Error(), "problemCode", code)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"problemCode": code,
		"hints":       hs,
	})
}
