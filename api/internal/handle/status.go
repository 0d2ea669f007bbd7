package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handle) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"message": "Codeforces Hint Helper server is running",
	})
}

func (h *Handle) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
