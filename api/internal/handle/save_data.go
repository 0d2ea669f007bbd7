package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cf-hints/api/internal/ingest"
)

const maxBody = 8 << 20

type saveDataRequest struct {
	Type        *string `json:"type"`
	ProblemCode *string `json:"problemCode"`
	Content     *string `json:"content"`
}

func isJSON(ct string) bool {
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

// SaveData stores one scraped part. When it completes a problem/editorial pair
// the hint pipeline runs before the response is sent; its outcome never turns
// the response into an error.
func (h *Handle) SaveData(c *gin.Context) {
	if !isJSON(c.ContentType()) {
		errorJSON(c, http.StatusBadRequest, "Request must be JSON")
		return
	}
	var req saveDataRequest
	if err := json.NewDecoder(io.LimitReader(c.Request.Body, maxBody)).Decode(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Request must be JSON")
		return
	}
	if req.Type == nil || req.ProblemCode == nil || req.Content == nil || *req.Type == "" || *req.ProblemCode == "" {
		errorJSON(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	sub := ingest.Submission{Type: *req.Type, ProblemCode: *req.ProblemCode, Content: *req.Content}
	res, err := h.saver.Save(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidSubmission) {
			errorJSON(c, http.StatusBadRequest, err.Error(), "problemCode", sub.ProblemCode)
			return
		}
		h.log.Error("save-data failed", zap.String("problem_code", sub.ProblemCode), zap.String("type", sub.Type), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Error saving file: "+err.Error(), "problemCode", sub.ProblemCode)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "File saved: " + res.Path,
		"problemCode":    sub.ProblemCode,
		"type":           sub.Type,
		"hintsGenerated": res.HintsGenerated,
	})
}
