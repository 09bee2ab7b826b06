package http

import (
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/handler/http/middleware"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
)

type RouterOptions struct {
	Env         string
	CORSOrigins []string
	LogLevel    slog.Level
	LogWriter   io.Writer // request log destination, stdout when nil
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, attendanceHandler AttendanceHandler, summaryHandler SummaryHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "kintai-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireTenant)

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceClock))
					r.Post("/clock-in", attendanceHandler.ClockIn)
					r.Post("/{id}/clock-out", attendanceHandler.ClockOut)
					r.Post("/{id}/breaks/start", attendanceHandler.StartBreak)
					r.Post("/{id}/breaks/end", attendanceHandler.EndBreak)
				})

				r.With(middleware.RequirePermission(user.PermissionAttendanceViewOwn)).
					Get("/my", attendanceHandler.GetMyAttendance)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", attendanceHandler.List)
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/{id}", attendanceHandler.Get)
					r.With(middleware.RequirePermission(user.PermissionAttendanceManage)).Post("/", attendanceHandler.Create)
					r.With(middleware.RequirePermission(user.PermissionAttendanceManage)).Put("/{id}", attendanceHandler.Update)
				})
			})

			r.Get("/periods", summaryHandler.ListPeriods)

			// Admin only
			r.Route("/summaries", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.With(middleware.RequirePermission(user.PermissionSummaryView)).Get("/monthly", summaryHandler.GetMonthlySummary)
				r.With(middleware.RequirePermission(user.PermissionSummaryExport)).Get("/monthly/export", summaryHandler.ExportCSV)
			})
		})
	})

	return r
}
