package server

import (
	"errors"
	"net/http"

	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware converts domain errors attached to the context
// into a JSON error envelope.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, scoringdomain.ErrInvalidPeriod),
		errors.Is(err, scoringdomain.ErrInvalidEvent),
		errors.Is(err, userdomain.ErrInvalidIdentity):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, leaderboarddomain.ErrUserNotFound),
		errors.Is(err, userdomain.ErrUserNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, scoringdomain.ErrPersistenceUnavailable),
		errors.Is(err, scoringdomain.ErrConflictRetryExhausted):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
