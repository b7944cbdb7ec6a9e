package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// GenerateQuiz builds a quiz from a session or thread.
// POST /v1/owners/:owner_id/quiz
func (h *Handler) GenerateQuiz(c echo.Context) error {
	var req domain.QuizRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	quiz, err := h.service.GenerateQuiz(c.Request().Context(), c.Param("owner_id"), req)
	if err != nil {
		return h.writeError(c, err, nil)
	}
	return c.JSON(http.StatusOK, quiz)
}

// GenerateStudyPlan builds a seven day plan.
// POST /v1/owners/:owner_id/study-plan
func (h *Handler) GenerateStudyPlan(c echo.Context) error {
	var req domain.StudyPlanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	plan := h.service.GenerateStudyPlan(c.Request().Context(), c.Param("owner_id"), req)
	return c.JSON(http.StatusOK, plan)
}

// SaveArtifact stores a quiz or study plan.
// POST /v1/owners/:owner_id/artifacts
func (h *Handler) SaveArtifact(c echo.Context) error {
	var req domain.SaveArtifactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	a, err := h.service.SaveArtifact(c.Request().Context(), c.Param("owner_id"), req)
	if err != nil {
		return h.writeError(c, err, nil)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListArtifacts lists saved artifacts, optionally of one kind.
// GET /v1/owners/:owner_id/artifacts
func (h *Handler) ListArtifacts(c echo.Context) error {
	kind := domain.ArtifactKind(c.QueryParam("kind"))
	switch kind {
	case "", domain.ArtifactKindQuiz, domain.ArtifactKindStudyPlan:
	default:
		return badRequest(c, "unknown artifact kind: "+string(kind))
	}
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	resp, err := h.service.ListArtifacts(c.Request().Context(), c.Param("owner_id"), kind, limit)
	if err != nil {
		return h.writeError(c, err, nil)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteArtifact removes a saved artifact.
// DELETE /v1/owners/:owner_id/artifacts/:artifact_id
func (h *Handler) DeleteArtifact(c echo.Context) error {
	if err := h.service.DeleteArtifact(c.Request().Context(), c.Param("owner_id"), c.Param("artifact_id")); err != nil {
		return h.writeError(c, err, nil)
	}
	return c.NoContent(http.StatusNoContent)
}
