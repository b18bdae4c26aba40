package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/gin-gonic/gin"
)

// errorStatuses is checked in order; the first match wins. Expired tokens
// are also unauthorized, so they come first.
var errorStatuses = []struct {
	err    error
	status int
}{
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrValidation, http.StatusBadRequest},
	{common.ErrEmptyUpload, http.StatusBadRequest},
	{common.ErrDecode, http.StatusBadRequest},
	{common.ErrDuplicateEmail, http.StatusBadRequest},
	{common.ErrNoObjectDetected, http.StatusNotFound},
	{common.ErrMetadataMissing, http.StatusNotFound},
	{common.ErrTooManyRequests, http.StatusTooManyRequests},
	{common.ErrUnrecognizedModelOutput, http.StatusInternalServerError},
	{common.ErrInference, http.StatusInternalServerError},
}

// statusFor maps a service error to its HTTP status and the message shown
// to the client. Unknown errors are 500 and their text is not exposed.
func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.err == common.ErrValidation {
				return e.status, err.Error()
			}
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, common.ErrorInternal.Error()
}

func writeError(c *gin.Context, err error) {
	status, detail := statusFor(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
