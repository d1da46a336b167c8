package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/admission"
	"github.com/gin-gonic/gin"
)

const (
	msgTryAgain    = "something went wrong, please try again"
	msgLinkInvalid = "link invalid or expired"
)

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// writeError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	var aerr *admission.Error
	switch {
	case errors.As(err, &aerr):
		status := http.StatusBadRequest
		if aerr.Has(admission.RuleFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.AbortWithStatusJSON(status, gin.H{"message": aerr.Error(), "violations": aerr.Violations})
	case errors.Is(err, common.ErrorValidation):
		abortMessage(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		abortMessage(c, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorDenied):
		abortMessage(c, http.StatusForbidden, "you do not have access to this file")
	case errors.Is(err, common.ErrorAlreadyExists):
		abortMessage(c, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrRefreshTokenExpired):
		abortMessage(c, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
		abortMessage(c, http.StatusInternalServerError, msgTryAgain)
	}
}
