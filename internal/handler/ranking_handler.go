package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/service"
)

type RankingHandler struct {
	svc service.RankingService
}

func NewRankingHandler(svc service.RankingService) *RankingHandler {
	return &RankingHandler{svc: svc}
}

type LocationRankResponse struct {
	Rank int64 `json:"rank"`
	LocationResponse
}

type UserRankResponse struct {
	Rank          int64   `json:"rank"`
	UID           string  `json:"uid"`
	Username      string  `json:"username"`
	AvatarURL     *string `json:"avatarUrl,omitempty"`
	TotalPoints   int64   `json:"totalPoints"`
	IsCurrentUser bool    `json:"isCurrentUser"`
}

type LocationRankingResponse struct {
	Rankings []LocationRankResponse `json:"rankings"`
}

type UserRankingResponse struct {
	Rankings []UserRankResponse `json:"rankings"`
}

func parseLimit(c echo.Context) (int, error) {
	s := c.QueryParam("limit")
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (h *RankingHandler) Locations(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid limit"))
	}
	rows, err := h.svc.TopLocations(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err, "rankings")
	}
	return c.JSON(http.StatusOK, toLocationRanking(rows))
}

func (h *RankingHandler) LocationsStream(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid limit"))
	}
	sub, err := h.svc.WatchTopLocations(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err, "rankings")
	}
	return streamSSE(c, sub, toLocationRanking)
}

// Users includes the caller's own row when a token is supplied.
func (h *RankingHandler) Users(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid limit"))
	}
	rows, err := h.svc.TopUsers(c.Request().Context(), limit, currentUID(c))
	if err != nil {
		return writeError(c, err, "rankings")
	}
	return c.JSON(http.StatusOK, toUserRanking(rows))
}

func (h *RankingHandler) UsersStream(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid limit"))
	}
	sub, err := h.svc.WatchTopUsers(c.Request().Context(), limit, currentUID(c))
	if err != nil {
		return writeError(c, err, "rankings")
	}
	return streamSSE(c, sub, toUserRanking)
}

func toLocationRanking(rows []service.LocationRank) LocationRankingResponse {
	resp := LocationRankingResponse{Rankings: make([]LocationRankResponse, 0, len(rows))}
	for i := range rows {
		resp.Rankings = append(resp.Rankings, LocationRankResponse{
			Rank:             rows[i].Rank,
			LocationResponse: toLocationResponse(&rows[i].Location),
		})
	}
	return resp
}

func toUserRanking(rows []service.UserRank) UserRankingResponse {
	resp := UserRankingResponse{Rankings: make([]UserRankResponse, 0, len(rows))}
	for _, r := range rows {
		resp.Rankings = append(resp.Rankings, UserRankResponse{
			Rank:          r.Rank,
			UID:           r.Profile.UID,
			Username:      r.Profile.Username,
			AvatarURL:     r.Profile.AvatarURL,
			TotalPoints:   r.Profile.TotalPoints,
			IsCurrentUser: r.IsCurrentUser,
		})
	}
	return resp
}
