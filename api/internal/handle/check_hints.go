package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handle) CheckHints(c *gin.Context) {
	code, ok := problemCode(c)
	if !ok {
		return
	}
	available, err := h.hints.Exists(c.Request.Context(), code)
	if err != nil {
		h.log.Error("check-hints failed", zap.String("problem_code", code), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Error checking hints: "+err.Error(), "problemCode", code)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"problemCode":    code,
		"hintsAvailable": available,
	})
}
