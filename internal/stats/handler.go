package stats

import (
	"errors"
	"net/http"

	httperr "github.com/codepulse-dev/codepulse/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all stats API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/users/:user_id/stats/daily", s.HandleDailyStats)
	r.GET("/v1/users/:user_id/stats/weekly", s.HandleWeeklyStats)
	r.GET("/v1/users/:user_id/activity", s.HandleActivityRange)
}

// HandleDailyStats handles GET /v1/users/:user_id/stats/daily?date=YYYY-MM-DD
func (s *Service) HandleDailyStats(c *gin.Context) {
	userID := c.Param("user_id")
	date := c.Query("date")

	resp, err := s.GetDailyStats(c.Request.Context(), userID, date)
	if err != nil {
		writeQueryError(c, "Failed to query daily stats", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWeeklyStats handles GET /v1/users/:user_id/stats/weekly?date=YYYY-MM-DD
// date may be any day of the week; the response carries the resolved week start.
func (s *Service) HandleWeeklyStats(c *gin.Context) {
	userID := c.Param("user_id")
	date := c.Query("date")

	resp, err := s.GetWeeklyStats(c.Request.Context(), userID, date)
	if err != nil {
		writeQueryError(c, "Failed to query weekly stats", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleActivityRange handles GET /v1/users/:user_id/activity?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Service) HandleActivityRange(c *gin.Context) {
	userID := c.Param("user_id")
	start := c.Query("start")
	end := c.Query("end")

	resp, err := s.GetUserActivityRange(c.Request.Context(), userID, start, end)
	if err != nil {
		writeQueryError(c, "Failed to query user activity", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeQueryError(c *gin.Context, message string, err error) {
	if errors.Is(err, ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   message,
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
		Details:   err.Error(),
	})
}
