// Package handlers implements the HTTP request handlers of the API surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierd/courierd/pkg/errors"
)

// respondError translates an application error into its JSON response.
// Plain errors collapse into a generic 500 so nothing internal leaks.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, errors.ToErrorResponse(err))
}
