package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

func (s *Server) handleGetAnalysis(c echo.Context) error {
	a, err := s.services.Analysis.Load(c.Request().Context(), session(c).UserID())
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

// handlePutAnalysis overwrites the caller's analysis. The body's userId is
// ignored; the record always belongs to the session user.
func (s *Server) handlePutAnalysis(c echo.Context) error {
	var a decision.Analysis
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a.UserID = session(c).UserID()

	stored, err := s.services.Analysis.Save(c.Request().Context(), &a)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, stored, nil)
}

func (s *Server) handleSetTitle(c echo.Context) error {
	var req TitleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, err := s.services.Analysis.SetTitle(c.Request().Context(), session(c).UserID(), req.Title)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

func (s *Server) handleAddOption(c echo.Context) error {
	a, added, err := s.services.Analysis.AddOption(c.Request().Context(), session(c).UserID())
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusCreated, a, &added)
}

func (s *Server) handleRenameOption(c echo.Context) error {
	var req RenameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, err := s.services.Analysis.RenameOption(c.Request().Context(), session(c).UserID(), c.Param("id"), req.Name)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

func (s *Server) handleRemoveOption(c echo.Context) error {
	a, err := s.services.Analysis.RemoveOption(c.Request().Context(), session(c).UserID(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

func (s *Server) handleSetRating(c echo.Context) error {
	f, err := decision.ParseFactor(c.Param("factor"))
	if err != nil {
		return s.fail(c, err)
	}
	var req RatingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Value == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}

	a, err := s.services.Analysis.SetRating(c.Request().Context(), session(c).UserID(), c.Param("id"), f, *req.Value)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

func (s *Server) handleSetWeight(c echo.Context) error {
	f, err := decision.ParseFactor(c.Param("factor"))
	if err != nil {
		return s.fail(c, err)
	}
	var req WeightRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Value == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}

	a, err := s.services.Analysis.SetWeight(c.Request().Context(), session(c).UserID(), f, *req.Value)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respondAnalysis(c, http.StatusOK, a, nil)
}

func (s *Server) handleRanking(c echo.Context) error {
	rows, err := s.services.Analysis.Standings(c.Request().Context(), session(c).UserID())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, RankingResponse{Ranking: rows})
}

// handleScore ranks a posted analysis without storing it. A missing
// weight vector means neutral weights.
func (s *Server) handleScore(c echo.Context) error {
	var a decision.Analysis
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return s.fail(c, err)
	}

	rows, err := a.Standings()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, RankingResponse{Ranking: rows})
}

func (s *Server) respondAnalysis(c echo.Context, code int, a *decision.Analysis, added *decision.Option) error {
	rows, err := a.Standings()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(code, AnalysisResponse{Analysis: a, Ranking: rows, Option: added})
}
