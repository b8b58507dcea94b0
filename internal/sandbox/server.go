package sandbox

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/guardian/internal/backend"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/validation"
)

const userKey = "sandbox.user"

// Server exposes a Backend over HTTP.
type Server struct {
	backend *Backend
	engine  *gin.Engine
}

// NewServer builds the router. Call gin.SetMode before it to silence debug output.
func NewServer(b *Backend) *Server {
	s := &Server{
		backend: b,
		engine:  gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// registerRoutes wires every endpoint of the alert API.
func (s *Server) registerRoutes() {
	api := s.engine.Group("", s.authenticate())

	alerts := api.Group("/alert")
	{
		alerts.POST("/panic", requireRole(alert.RolePatient), s.createPanic)
		alerts.GET("/user-alerts", requireRole(alert.RolePatient), s.userAlerts)
		alerts.GET("/available-responders", s.availableResponders)
		alerts.DELETE("/:id", requireRole(alert.RolePatient), s.deleteAlert)
	}

	responders := api.Group("/responder", requireRole(alert.RoleResponder))
	{
		responders.GET("/alerts/assigned-alerts", s.assignedAlerts)
		responders.POST("/alerts/:action/:id", s.transition)
		responders.POST("/register", s.register)
		responders.GET("/profile", s.profile)
	}

	api.GET("/trusted-location", s.trustedLocations)
	api.POST("/trusted-location", s.addTrustedLocation)
}

// authenticate resolves the bearer token into a seeded user.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")

		u, err := s.backend.Authenticate(strings.TrimSpace(token))
		if err != nil {
			writeError(c, err)

			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

// requireRole rejects users of other roles with 403.
func requireRole(role alert.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied: " + string(role) + " role required"})

			return
		}

		c.Next()
	}
}

func (s *Server) createPanic(c *gin.Context) {
	var req backend.PanicRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)

		return
	}

	if len(req.Coordinates) != 2 {
		writeError(c, fmt.Errorf("%w: coordinates must be [latitude, longitude]", alert.ErrValidation))

		return
	}

	origin := alert.Location{
		Latitude:  req.Coordinates[0],
		Longitude: req.Coordinates[1],
		Accuracy:  req.Accuracy,
	}

	if err := validation.Struct(&struct {
		Latitude  float64 `validate:"latitude"`
		Longitude float64 `validate:"longitude"`
		Accuracy  float64 `validate:"gte=0"`
	}{origin.Latitude, origin.Longitude, origin.Accuracy}); err != nil {
		writeError(c, err)

		return
	}

	created, replay, err := s.backend.CreateAlert(currentUser(c), alert.Type(req.Type), origin,
		c.GetHeader(backend.HeaderIdempotencyKey))
	if err != nil {
		writeError(c, err)

		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{"data": backend.ToAlertDTO(created)})
}

func (s *Server) userAlerts(c *gin.Context) {
	writeAlerts(c, s.backend.UserAlerts(currentUser(c)))
}

func (s *Server) assignedAlerts(c *gin.Context) {
	writeAlerts(c, s.backend.AssignedAlerts(currentUser(c)))
}

func (s *Server) transition(c *gin.Context) {
	action := alert.Action(c.Param("action"))
	if !action.IsTransition() {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Unknown action " + string(action)})

		return
	}

	updated, err := s.backend.Apply(currentUser(c), c.Param("id"), action)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"data": backend.ToAlertDTO(updated)})
}

func (s *Server) deleteAlert(c *gin.Context) {
	if err := s.backend.Delete(currentUser(c), c.Param("id")); err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}

func (s *Server) availableResponders(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)

	if latErr != nil || lngErr != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})

		return
	}

	logger.DebugKV(c.Request.Context(), "Facility query", "lat", lat, "lng", lng)

	list := s.backend.Facilities()
	dtos := make([]backend.FacilityDTO, len(list))

	for i, f := range list {
		dtos[i] = backend.ToFacilityDTO(f)
	}

	c.JSON(http.StatusOK, gin.H{"data": dtos})
}

func (s *Server) register(c *gin.Context) {
	var req backend.RegistrationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)

		return
	}

	profile, err := s.backend.Register(currentUser(c), backend.FromRegistrationDTO(&req))
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": backend.ToProfileDTO(profile)})
}

func (s *Server) profile(c *gin.Context) {
	profile, err := s.backend.Profile(currentUser(c))
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"data": backend.ToProfileDTO(profile)})
}

func (s *Server) trustedLocations(c *gin.Context) {
	list := s.backend.TrustedLocations(currentUser(c))
	dtos := make([]backend.TrustedLocationDTO, len(list))

	for i, loc := range list {
		dtos[i] = backend.ToTrustedLocationDTO(loc)
	}

	c.JSON(http.StatusOK, gin.H{"data": dtos})
}

func (s *Server) addTrustedLocation(c *gin.Context) {
	var req backend.TrustedLocationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)

		return
	}

	loc, err := s.backend.AddTrustedLocation(currentUser(c), backend.ToDraft(&req))
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": backend.ToTrustedLocationDTO(loc)})
}

func currentUser(c *gin.Context) *User {
	u, _ := c.MustGet(userKey).(*User)

	return u
}

func writeAlerts(c *gin.Context, alerts []*alert.Alert) {
	dtos := make([]*backend.AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = backend.ToAlertDTO(a)
	}

	c.JSON(http.StatusOK, gin.H{"data": dtos})
}

// writeError answers with the status of the error class and its text.
func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"message": err.Error()})
}

func badRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, alert.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, alert.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, alert.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, alert.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, alert.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger logs every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.DebugKV(c.Request.Context(), "Sandbox request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String())
	}
}
