// Package router builds the echo instance and mounts every API route with
// its authentication and capability middleware.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/unispace/internal/handler"
	"github.com/iliyamo/unispace/internal/live"
	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/middleware"
	"github.com/iliyamo/unispace/internal/model"
)

// Deps is everything the routes need. RateLimit and Cache may be nil.
type Deps struct {
	Auth          *handler.AuthHandler
	Reservations  *handler.ReservationHandler
	Occupancy     *handler.OccupancyHandler
	Notifications *handler.NotificationHandler
	Classrooms    *handler.ClassroomHandler
	Profiles      *handler.ProfileHandler
	Health        *handler.HealthHandler
	Live          *live.Handler
	Identifier    middleware.Identifier
	MetricsPage   http.Handler
	RateLimit     echo.MiddlewareFunc
	Cache         echo.MiddlewareFunc
}

// New returns an echo instance with the shared middleware stack installed.
func New(m *metrics.Metrics, origins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(
		middleware.RequestID(),
		middleware.RequestLogger(m),
		echomw.Recover(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		}),
		echomw.BodyLimit("1M"),
	)
	return e
}

// RegisterRoutes mounts the probes and every /api route.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.Health != nil {
		e.GET("/healthz", d.Health.Health)
	}
	if d.MetricsPage != nil {
		e.GET("/metrics", echo.WrapHandler(d.MetricsPage))
	}
	api := e.Group("/api", orPass(d.RateLimit))
	RegisterAuth(api, d)
	RegisterClassrooms(api, d)
	RegisterIntervals(api, d)
	RegisterNotifications(api, d)
	RegisterProfiles(api, d)
	if d.Live != nil {
		api.GET("/live", d.Live.Serve)
	}
}

func RegisterAuth(api *echo.Group, d Deps) {
	a := d.Auth
	jwt := middleware.JWTAuth(d.Identifier)
	userAdmin := middleware.RequireCapability(model.CapUserAdmin)

	api.POST("/signup", a.Signup, middleware.OptionalJWTAuth(d.Identifier))
	api.POST("/login", a.Login)
	api.POST("/login/refresh", a.Refresh)
	api.POST("/logout", a.Logout)
	api.GET("/me", a.Me, jwt)

	users := api.Group("/users", jwt)
	users.GET("", a.ListUsers, userAdmin)
	users.POST("", a.CreateUser, userAdmin)
	users.GET("/:id", a.GetUser)
	users.PATCH("/:id", a.UpdateUser, userAdmin)
}

func RegisterClassrooms(api *echo.Group, d Deps) {
	h := d.Classrooms
	admin := middleware.RequireCapability(model.CapClassroomAdmin)
	g := api.Group("/classrooms", middleware.JWTAuth(d.Identifier), orPass(d.Cache))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, admin)
	g.PATCH("/:id", h.Update, admin)
}

// RegisterIntervals mounts reservations and occupancies.
func RegisterIntervals(api *echo.Group, d Deps) {
	jwt := middleware.JWTAuth(d.Identifier)

	r := d.Reservations
	write := middleware.RequireCapability(model.CapReservationWrite)
	res := api.Group("/reservations", jwt)
	res.GET("", r.List)
	res.POST("", r.Create, write)
	res.POST("/convert", r.Convert, middleware.RequireCapability(model.CapReservationConvert))
	res.GET("/:id", r.Get)
	res.PATCH("/:id", r.Update, write)
	res.DELETE("/:id", r.Delete, write)

	o := d.Occupancy
	occWrite := middleware.RequireCapability(model.CapOccupancyWrite)
	occ := api.Group("/occupancy", jwt)
	occ.GET("", o.List)
	occ.POST("", o.Create, occWrite)
	occ.GET("/classroom/:classroomId", o.ListByClassroom)
	occ.GET("/:id", o.Get)
	occ.PATCH("/:id", o.Update, occWrite)
	occ.DELETE("/:id", o.Delete, occWrite)
}

func RegisterNotifications(api *echo.Group, d Deps) {
	h := d.Notifications
	g := api.Group("/notifications", middleware.JWTAuth(d.Identifier))
	g.GET("", h.List, middleware.RequireCapability(model.CapNotificationRead))
	g.POST("", h.Create, middleware.RequireCapability(model.CapNotificationCreate))
	g.PATCH("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)
}

func RegisterProfiles(api *echo.Group, d Deps) {
	h := d.Profiles
	g := api.Group("/profiles", middleware.JWTAuth(d.Identifier))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete, middleware.RequireCapability(model.CapProfileAdmin))
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
