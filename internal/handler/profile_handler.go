package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/service"
)

// UserLookup reads the identity provider's record. *auth.Client satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

type ProfileHandler struct {
	svc       service.ProfileService
	locations service.LocationService
	users     UserLookup
}

func NewProfileHandler(svc service.ProfileService, locations service.LocationService, users UserLookup) *ProfileHandler {
	return &ProfileHandler{svc: svc, locations: locations, users: users}
}

type ProfileResponse struct {
	UID          string  `json:"uid"`
	Username     string  `json:"username"`
	Email        string  `json:"email,omitempty"`
	AvatarURL    *string `json:"avatarUrl,omitempty"`
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	TotalPoints  int64   `json:"totalPoints"`
	BadgesEarned int     `json:"badgesEarned"`
	CreatedAt    string  `json:"createdAt"`
}

type PublicProfileResponse struct {
	UID          string  `json:"uid"`
	Username     string  `json:"username"`
	AvatarURL    *string `json:"avatarUrl,omitempty"`
	TotalPoints  int64   `json:"totalPoints"`
	BadgesEarned int     `json:"badgesEarned"`
}

type UserStatsResponse struct {
	UID            string `json:"uid"`
	TotalPoints    int64  `json:"totalPoints"`
	LocationCount  int64  `json:"locationCount"`
	LocationPoints int64  `json:"locationPoints"`
}

type UpdateProfileRequest struct {
	Username  string  `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// Ensure creates the caller's profile from their Firebase record if needed.
func (h *ProfileHandler) Ensure(c echo.Context) error {
	uid := currentUID(c)
	user := service.AuthUser{UID: uid}
	if h.users != nil && uid != "" {
		rec, err := h.users.GetUser(c.Request().Context(), uid)
		if err != nil {
			log.Printf("[profile] rid=%s stage=get_user_fail uid=%s err=%v", logctx.RID(c.Request().Context()), uid, err)
		} else if rec.UserInfo != nil {
			user.DisplayName = rec.DisplayName
			user.Email = rec.Email
			user.PhotoURL = rec.PhotoURL
		}
	}
	p, err := h.svc.Ensure(c.Request().Context(), user)
	if err != nil {
		return writeError(c, err, "profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) Me(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), currentUID(c))
	if err != nil {
		return writeError(c, err, "profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) Update(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.svc.Update(c.Request().Context(), currentUID(c), service.ProfileUpdate{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeError(c, err, "profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "image file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable image"))
	}
	defer f.Close()
	p, err := h.svc.SetAvatar(c.Request().Context(), currentUID(c), fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return writeError(c, err, "profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	p, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "user")
	}
	return c.JSON(http.StatusOK, PublicProfileResponse{
		UID:          p.UID,
		Username:     p.Username,
		AvatarURL:    p.AvatarURL,
		TotalPoints:  p.TotalPoints,
		BadgesEarned: p.BadgesEarned,
	})
}

func (h *ProfileHandler) Stats(c echo.Context) error {
	uid := c.Param("uid")
	p, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "user")
	}
	stats, err := h.locations.OwnerStats(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "user")
	}
	return c.JSON(http.StatusOK, UserStatsResponse{
		UID:            uid,
		TotalPoints:    p.TotalPoints,
		LocationCount:  stats.Count,
		LocationPoints: stats.Points,
	})
}

func toProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		UID:          p.UID,
		Username:     p.Username,
		Email:        p.Email,
		AvatarURL:    p.AvatarURL,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		TotalPoints:  p.TotalPoints,
		BadgesEarned: p.BadgesEarned,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
