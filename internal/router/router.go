package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-service/internal/handler"    // import the handlers that implement the notes API
	"github.com/iliyamo/notes-service/internal/middleware" // request logging
)

// Middleware groups the optional per-route middleware.  Nil entries are
// skipped, so tests can register the bare routes.
type Middleware struct {
	RateLimit   echo.MiddlewareFunc // applied to both notes routes
	ReadCache   echo.MiddlewareFunc // applied to GET /notes
	PurgeOnSave echo.MiddlewareFunc // applied to POST /notes
}

// UseGlobal installs the middleware every route runs behind.  Recover sits
// inside the request logger so a recovered panic is logged as the 500 the
// client received.
func UseGlobal(e *echo.Echo, log *zap.Logger) {
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
}

// RegisterRoutes registers the root confirmation and liveness endpoints.
// Neither touches the database.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	// Load balancers and monitoring systems probe /healthz.
	e.GET("/healthz", handler.Health)
}

// RegisterNotes registers the notes endpoints on the provided Echo instance.
func RegisterNotes(e *echo.Echo, h *handler.NoteHandler, mw Middleware) {
	e.POST("/notes", h.CreateNote, chain(mw.RateLimit, mw.PurgeOnSave)...)
	e.GET("/notes", h.ListNotes, chain(mw.RateLimit, mw.ReadCache)...)
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
