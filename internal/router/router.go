package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/campuskit/checkin/api/handler"
)

type Handlers struct {
	Session    *apiHandler.SessionHandler
	Attendance *apiHandler.AttendanceHandler
	Health     *apiHandler.HealthHandler
}

func New(handlers Handlers, facultyAuth func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Faculty routes: opening and closing check-in windows.
	r.POST("/api/v1/sessions", facultyAuth(handlers.Session.Issue))
	r.DELETE("/api/v1/sessions/{id}", facultyAuth(handlers.Session.Close))

	// Student routes: the scan path stays unauthenticated; the status poll
	// is throttled per client inside the use case.
	r.GET("/api/v1/sessions/{id}", handlers.Session.Status)
	r.POST("/api/v1/attendance", handlers.Attendance.Mark)

	return r
}
