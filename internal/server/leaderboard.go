package server

import (
	"net/http"
	"strconv"
	"time"

	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetLeaderboard(c *gin.Context) {
	var query struct {
		Period string `form:"period"`
		Limit  int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	period, err := scoringdomain.ParsePeriod(query.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.boardSvc.Rank(c.Request.Context(), leaderboarddomain.RankRequest{
		Period: period,
		Limit:  query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "period": period})
}

func (s *Server) GetUserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	period, err := scoringdomain.ParsePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Zero AsOf lets the service anchor the period at its own clock.
	stats, err := s.boardSvc.UserStats(c.Request.Context(), userID, period, time.Time{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats, "period": period})
}
