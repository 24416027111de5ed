package http

import (
	"net/http"
	"time"

	"equity-lending/internal/domain/errs"
	domainLoan "equity-lending/internal/domain/loan"
	domainWorkflow "equity-lending/internal/domain/workflow"
	"equity-lending/internal/usecase/loan"
	"equity-lending/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AdminHandler serves the operator routes: status decisions, corrections
// and workflow stage progress.
type AdminHandler struct {
	loans   *loan.Usecase
	tracker *workflow.Tracker
	log     zerolog.Logger
	now     func() time.Time
}

func NewAdminHandler(loans *loan.Usecase, tracker *workflow.Tracker, l zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		loans:   loans,
		tracker: tracker,
		log:     l.With().Str("component", "http.admin").Logger(),
		now:     time.Now,
	}
}

type adminStatusReq struct {
	Status          domainLoan.Status `json:"status" validate:"required,oneof=IN_REVIEW REJECTED"`
	Reason          string            `json:"decision_reason" validate:"max=2000"`
	ExpectedVersion *int64            `json:"expected_version"`
}

type adminEditReq struct {
	updateDraftReq
	Note            string `json:"note" validate:"max=2000"`
	DeleteDocuments bool   `json:"delete_documents"`
	ResetWorkflow   bool   `json:"reset_workflow"`
}

type stageUpdateReq struct {
	Status domainWorkflow.StageStatus `json:"status" validate:"required,oneof=IN_PROGRESS COMPLETED"`
	Notes  *string                    `json:"notes" validate:"omitempty,max=4000"`
}

type attachDocumentReq struct {
	StageType    domainWorkflow.StageType `json:"stage_type" validate:"required"`
	DocumentType string                   `json:"document_type" validate:"required,max=64"`
	StorageKey   string                   `json:"storage_key" validate:"required"`
}

func (h *AdminHandler) Get(c echo.Context) error {
	d, err := h.loans.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	var req adminStatusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.loans.AdminUpdateStatus(c.Request().Context(), loan.AdminStatusInput{
		ApplicationID:   c.Param("id"),
		Actor:           actor(c),
		Status:          req.Status,
		Reason:          req.Reason,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AdminHandler) Edit(c echo.Context) error {
	var req adminEditReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return validationFailed(c, err)
	}
	a, err := h.loans.AdminEdit(c.Request().Context(), loan.AdminEditInput{
		ApplicationID:   c.Param("id"),
		Actor:           actor(c),
		ExpectedVersion: req.ExpectedVersion,
		Note:            req.Note,
		Changes:         changes,
		Spouse:          req.SpouseInput,
		DeleteDocuments: req.DeleteDocuments,
		ResetWorkflow:   req.ResetWorkflow,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AdminHandler) ListStages(c echo.Context) error {
	stages, err := h.tracker.ListStages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": stages})
}

// UpdateStage refuses to complete a stage while its required documents are
// missing.
func (h *AdminHandler) UpdateStage(c echo.Context) error {
	var req stageUpdateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	appID := c.Param("id")
	st := domainWorkflow.StageType(c.Param("stage_type"))

	if req.Status == domainWorkflow.StageCompleted && domainWorkflow.ValidStageType(st) {
		missing, err := h.tracker.MissingDocuments(ctx, appID, st)
		if err != nil {
			return writeError(c, h.log, err)
		}
		if len(missing) > 0 {
			return writeError(c, h.log, errs.ErrDocumentRequired.WithDetails(map[string]any{
				"stage_type":        st,
				"missing_documents": missing,
			}))
		}
	}

	res, err := h.tracker.UpdateStage(ctx, workflow.UpdateStageInput{
		ApplicationID: appID,
		StageType:     st,
		Status:        req.Status,
		Notes:         req.Notes,
		Actor:         actor(c),
		Now:           h.now(),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) AttachDocument(c echo.Context) error {
	var req attachDocumentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.tracker.AttachDocument(c.Request().Context(), workflow.AttachDocumentInput{
		ApplicationID: c.Param("id"),
		StageType:     req.StageType,
		DocumentType:  req.DocumentType,
		StorageKey:    req.StorageKey,
		Actor:         actor(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *AdminHandler) ActivateBacklog(c echo.Context) error {
	n, err := h.tracker.ActivateBacklog(c.Request().Context(), actor(c), h.now())
	if err != nil {
		// partial progress is still reported
		h.log.Error().Err(err).Int("activated", n).Msg("activate backlog finished with errors")
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal_error", "activated": n})
	}
	return c.JSON(http.StatusOK, map[string]any{"activated": n})
}
