package server

import (
	"net/http"

	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListEvents(c *gin.Context) {
	var req scoringdomain.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.scoringSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            resp.Events,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	})
}
