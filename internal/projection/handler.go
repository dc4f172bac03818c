package projection

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/JFreegman/toxstats/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all query API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/series", s.HandleSeries)
	r.GET("/v1/countries", s.HandleCountries)
	r.GET("/v1/countries/current", s.HandleCurrentBreakdown)
	r.GET("/v1/countries/day", s.HandleDayBreakdown)
	r.GET("/v1/last-update", s.HandleLastUpdate)
}

// HandleSeries handles GET /v1/series
// Query parameters: granularity, country (repeatable), limit
func (s *Service) HandleSeries(c *gin.Context) {
	var req SeriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Series(c.Request.Context(), req)
	respond(c, resp, err, "Failed to query series")
}

func (s *Service) HandleCountries(c *gin.Context) {
	resp, err := s.Countries(c.Request.Context())
	respond(c, resp, err, "Failed to list countries")
}

func (s *Service) HandleCurrentBreakdown(c *gin.Context) {
	resp, err := s.CurrentBreakdown(c.Request.Context())
	respond(c, resp, err, "Failed to query current breakdown")
}

func (s *Service) HandleDayBreakdown(c *gin.Context) {
	resp, err := s.DayBreakdown(c.Request.Context())
	respond(c, resp, err, "Failed to query day breakdown")
}

func (s *Service) HandleLastUpdate(c *gin.Context) {
	resp, err := s.LastUpdate(c.Request.Context())
	respond(c, resp, err, "Failed to read last update")
}

func respond(c *gin.Context, body interface{}, err error, failure string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, body)
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrNoData):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "No snapshots have been ingested yet",
		})
	default:
		slog.Error("[Projection] Query failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   failure,
			Details:   err.Error(),
		})
	}
}
