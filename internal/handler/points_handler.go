package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/service"
)

type PointsHandler struct {
	svc service.PointsService
}

func NewPointsHandler(svc service.PointsService) *PointsHandler {
	return &PointsHandler{svc: svc}
}

type AwardResponse struct {
	Awarded           bool   `json:"awarded"`
	AlreadyInteracted bool   `json:"alreadyInteracted"`
	LocationID        string `json:"locationId"`
	PointsGiven       int64  `json:"pointsGiven"`
}

func (h *PointsHandler) Award(c echo.Context) error {
	id := c.Param("id")
	ctx := logctx.WithLocationID(c.Request().Context(), id)
	res, err := h.svc.Award(ctx, id, currentUID(c))
	if err != nil {
		if errors.Is(err, service.ErrAlreadyInteracted) {
			return c.JSON(http.StatusConflict, AwardResponse{AlreadyInteracted: true, LocationID: id})
		}
		return writeError(c, err, "location")
	}
	return c.JSON(http.StatusOK, AwardResponse{
		Awarded:     true,
		LocationID:  res.LocationID,
		PointsGiven: res.PointsGiven,
	})
}

func (h *PointsHandler) Interaction(c echo.Context) error {
	ok, err := h.svc.HasInteracted(c.Request().Context(), c.Param("id"), currentUID(c))
	if err != nil {
		return writeError(c, err, "interaction")
	}
	return c.JSON(http.StatusOK, map[string]bool{"interacted": ok})
}
