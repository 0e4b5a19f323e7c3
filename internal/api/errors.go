package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends a JSON error body with the given status
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func respondNotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "Not found")
}

func respondForbidden(c *gin.Context) {
	respondError(c, http.StatusForbidden, "Forbidden")
}

func respondInternal(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "Internal server error")
}
