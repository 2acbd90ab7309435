package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

// internalError writes errors for the service-to-service endpoints. Those
// endpoints skip the public envelope so peers get a flat status and body.
func internalError(c *gin.Context, err error) {
	if appErr := appErrors.FromError(err); appErr != nil {
		c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
