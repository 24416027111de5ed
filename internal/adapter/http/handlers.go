package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Register mounts every route. idem, when set, guards the routes that
// accept an Idempotency-Key header.
func Register(e *echo.Echo, h *Handler, loans *LoanHandler, admin *AdminHandler, idem echo.MiddlewareFunc) {
	var guarded []echo.MiddlewareFunc
	if idem != nil {
		guarded = append(guarded, idem)
	}

	e.GET("/health", h.Health)

	me := e.Group("/me")
	me.GET("/stock/summary", loans.Summary)
	apps := me.Group("/loan-applications")
	apps.POST("/quote", loans.Quote)
	apps.GET("", loans.List)
	apps.POST("", loans.CreateDraft, guarded...)
	apps.GET("/:id", loans.Get)
	apps.PATCH("/:id", loans.UpdateDraft)
	apps.POST("/:id/submit", loans.Submit, guarded...)
	apps.POST("/:id/cancel", loans.Cancel)
	apps.GET("/:id/schedule", loans.Schedule)

	org := e.Group("/org/loans")
	org.POST("/maintenance/activate-backlog", admin.ActivateBacklog)
	org.GET("/:id", admin.Get)
	org.PATCH("/:id", admin.UpdateStatus)
	org.PATCH("/:id/edit", admin.Edit)
	org.GET("/:id/workflow", admin.ListStages)
	org.PATCH("/:id/workflow/:stage_type", admin.UpdateStage)
	org.POST("/:id/documents", admin.AttachDocument)
}
