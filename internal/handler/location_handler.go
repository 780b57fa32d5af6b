package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/geo"
	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/service"
)

type LocationHandler struct {
	svc service.LocationService
}

func NewLocationHandler(svc service.LocationService) *LocationHandler {
	return &LocationHandler{svc: svc}
}

// LocationResponse is flat: the kind-specific fields sit next to the shared
// ones, as in stored documents.
type LocationResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Points         int64    `json:"points"`
	UserID         string   `json:"userId"`
	Type           string   `json:"type"`
	ImageURL       *string  `json:"imageUrl,omitempty"`
	ScientificName *string  `json:"scientificName,omitempty"`
	CareTips       *string  `json:"careTips,omitempty"`
	IsEdible       *bool    `json:"isEdible,omitempty"`
	Habitat        *string  `json:"habitat,omitempty"`
	Fenced         *bool    `json:"fenced,omitempty"`
	SoilType       *string  `json:"soilType,omitempty"`
	Distance       *float64 `json:"distanceMeters,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

type LocationListResponse struct {
	Locations []LocationResponse `json:"locations"`
	Total     int64              `json:"total"`
}

type NearbyResponse struct {
	Locations []LocationResponse `json:"locations"`
}

// createLocationRequest holds the shared fields. The kind payload is decoded
// from the same body by model.DecodeDetails.
type createLocationRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Type        string   `json:"type"`
	TypeString  string   `json:"typeString"`
}

func (h *LocationHandler) Create(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	var req createLocationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.Latitude == nil || req.Longitude == nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "latitude and longitude are required"))
	}
	kindName := req.Type
	if kindName == "" {
		kindName = req.TypeString
	}
	kind, err := model.ParseKind(kindName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	details, err := model.DecodeDetails(kind, raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	loc, err := h.svc.Create(c.Request().Context(), currentUID(c), service.CreateLocationInput{
		Name:        req.Name,
		Description: req.Description,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Details:     details,
	})
	if err != nil {
		return writeError(c, err, "location")
	}
	return c.JSON(http.StatusCreated, toLocationResponse(loc))
}

func (h *LocationHandler) Get(c echo.Context) error {
	loc, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err, "location")
	}
	return c.JSON(http.StatusOK, toLocationResponse(loc))
}

func (h *LocationHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	kind, err := parseKindFilter(c.QueryParam("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	list, total, err := h.svc.List(c.Request().Context(), limit, offset, kind)
	if err != nil {
		return writeError(c, err, "locations")
	}
	resp := LocationListResponse{
		Locations: make([]LocationResponse, 0, len(list)),
		Total:     total,
	}
	for i := range list {
		resp.Locations = append(resp.Locations, toLocationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *LocationHandler) ListByUser(c echo.Context) error {
	list, err := h.svc.ListByOwner(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return writeError(c, err, "locations")
	}
	resp := LocationListResponse{
		Locations: make([]LocationResponse, 0, len(list)),
		Total:     int64(len(list)),
	}
	for i := range list {
		resp.Locations = append(resp.Locations, toLocationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *LocationHandler) Nearby(c echo.Context) error {
	q, err := parseNearbyQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	list, err := h.svc.Nearby(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err, "locations")
	}
	return c.JSON(http.StatusOK, toNearbyResponse(list))
}

func (h *LocationHandler) NearbyStream(c echo.Context) error {
	q, err := parseNearbyQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	sub, err := h.svc.WatchNearby(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err, "locations")
	}
	return streamSSE(c, sub, toNearbyResponse)
}

// UploadImage takes a multipart "image" file and attaches it to the
// location. Only the owner may do this.
func (h *LocationHandler) UploadImage(c echo.Context) error {
	id := c.Param("id")
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "image file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable image"))
	}
	defer f.Close()
	ctx := logctx.WithLocationID(c.Request().Context(), id)
	loc, err := h.svc.AttachImage(ctx, currentUID(c), id, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return writeError(c, err, "location")
	}
	return c.JSON(http.StatusOK, toLocationResponse(loc))
}

func parseKindFilter(s string) (model.LocationKind, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	return model.ParseKind(s)
}

var errBadCenter = errors.New("lat and lon are required numbers")

func parseNearbyQuery(c echo.Context) (service.NearbyQuery, error) {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil {
		return service.NearbyQuery{}, errBadCenter
	}
	radius := service.DefaultRadius
	if r := c.QueryParam("radius"); r != "" {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return service.NearbyQuery{}, errors.New("radius must be a number of meters")
		}
		radius = v
	}
	kind, err := parseKindFilter(c.QueryParam("kind"))
	if err != nil {
		return service.NearbyQuery{}, err
	}
	return service.NearbyQuery{Center: geo.Point{Lat: lat, Lon: lon}, Radius: radius, Kind: kind}, nil
}

func toNearbyResponse(list []service.NearbyLocation) NearbyResponse {
	resp := NearbyResponse{Locations: make([]LocationResponse, 0, len(list))}
	for i := range list {
		r := toLocationResponse(&list[i].Location)
		d := list[i].Distance
		r.Distance = &d
		resp.Locations = append(resp.Locations, r)
	}
	return resp
}

func toLocationResponse(loc *model.Location) LocationResponse {
	resp := LocationResponse{
		ID:          loc.ID,
		Name:        loc.Name,
		Description: loc.Description,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Points:      loc.Points,
		UserID:      loc.UserID,
		Type:        string(loc.Kind()),
		ImageURL:    loc.ImageURL,
		CreatedAt:   loc.CreatedAt.UTC().Format(time.RFC3339),
	}
	switch d := loc.Details.(type) {
	case model.PlantDetails:
		resp.ScientificName = &d.ScientificName
		resp.CareTips = &d.CareTips
	case model.MushroomDetails:
		resp.IsEdible = &d.Edible
		resp.Habitat = &d.Habitat
	case model.PlantingSpotDetails:
		resp.Fenced = &d.Fenced
		resp.SoilType = &d.SoilType
	}
	return resp
}
