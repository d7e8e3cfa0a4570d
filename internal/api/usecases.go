// Package api contains the HTTP handlers for the use-case workflow service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"usecase-workflow/backend/internal/engine"
	"usecase-workflow/backend/internal/logging"
	"usecase-workflow/backend/internal/repository"
	"usecase-workflow/backend/internal/services"
	"usecase-workflow/backend/pkg/models"
)

// UseCaseUpdater is the coordinator behind the update endpoint.
type UseCaseUpdater interface {
	Update(ctx context.Context, p services.UpdateParams) ([]models.Stage, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	Svc    UseCaseUpdater
	Logger *logging.Logger
}

// NewServer creates a new Server.
func NewServer(svc UseCaseUpdater, logger *logging.Logger) *Server {
	return &Server{Svc: svc, Logger: logger}
}

// RegisterRoutes mounts the API routes on the given group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.PUT("/usecases/:id", s.UpdateUseCase)
}

// updateRequest is the inbound body for a use case update.
type updateRequest struct {
	Name        string         `json:"name"`
	UpdatedByID string         `json:"updated_by_id"`
	Stages      []models.Stage `json:"stages"`
}

// UpdateUseCase updates a use case's stage definition and dispatches a new
// execution under the republished workflow version.
// (PUT /api/v1/usecases/:id)
func (s *Server) UpdateUseCase(c echo.Context) error {
	ctx := c.Request().Context()

	useCaseID := c.Param("id")
	if _, err := uuid.Parse(useCaseID); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid id", "use case id must be a UUID")
	}

	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}
	if _, err := uuid.Parse(req.UpdatedByID); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid id", "updated_by_id must be a UUID")
	}
	if len(req.Name) < 3 {
		return problem(c, http.StatusBadRequest, "Invalid request body", "usecase name should be atleast 3 characters long")
	}
	if len(req.Stages) == 0 {
		return problem(c, http.StatusBadRequest, "Invalid request body", "stages must be a non-empty array")
	}
	for i, stage := range req.Stages {
		if stage.Label == "" {
			return problem(c, http.StatusBadRequest, "Invalid request body", fmt.Sprintf("stages[%d] is missing a label", i))
		}
		if stage.Tasks == nil || stage.Checklist == nil {
			return problem(c, http.StatusBadRequest, "Invalid request body", fmt.Sprintf("stages[%d] must carry tasks and checklist arrays", i))
		}
	}

	stages, err := s.Svc.Update(ctx, services.UpdateParams{
		UseCaseID:   useCaseID,
		UpdatedByID: req.UpdatedByID,
		Name:        req.Name,
		Stages:      req.Stages,
	})
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"stages": stages})
}

// mapError translates coordinator failures onto the HTTP surface.
func (s *Server) mapError(c echo.Context, err error) error {
	var gap *services.ReconciliationGapError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return problem(c, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, repository.ErrConflict), errors.Is(err, engine.ErrNameConflict):
		return problem(c, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &gap):
		// Already logged with its handles by the coordinator.
		return problem(c, http.StatusInternalServerError, "Update dispatched but not recorded",
			"the execution was started but could not be recorded; it will be reconciled")
	case errors.Is(err, engine.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return problem(c, http.StatusServiceUnavailable, "Upstream unavailable", err.Error())
	default:
		s.Logger.Error("use case update failed", "error", err)
		return problem(c, http.StatusInternalServerError, "Internal Server Error", "unexpected failure")
	}
}
