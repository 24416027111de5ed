// Package errs holds the machine-readable business error taxonomy shared by
// the quote, reservation and lifecycle components.
package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidSelection            Code = "invalid_selection"
	CodeNoExercisableShares         Code = "no_exercisable_shares"
	CodeSharesExceedEligibility     Code = "shares_exceed_eligibility"
	CodeExerciseIneligible          Code = "exercise_ineligible"
	CodeInterestTypeNotAllowed      Code = "interest_type_not_allowed"
	CodeRepaymentMethodNotAllowed   Code = "repayment_method_not_allowed"
	CodeInvalidTerm                 Code = "invalid_term"
	CodeVariableRateMissing         Code = "variable_rate_missing"
	CodeNoQuoteOptions              Code = "no_quote_options"
	CodePolicyOutOfDate             Code = "policy_out_of_date"
	CodeMaritalStatusMismatch       Code = "marital_status_mismatch"
	CodeSpouseInfoRequired          Code = "spouse_info_required"
	CodeInsufficientAvailableShares Code = "insufficient_available_shares"
	CodeGrantNotFound               Code = "grant_not_found"
	CodeInvalidStatus               Code = "invalid_status"
	CodeIdempotencyConflict         Code = "idempotency_conflict"
	CodeConcurrentUpdate            Code = "concurrent_update"
	CodeMembershipNotFound          Code = "membership_not_found"

	CodeInvalidIdempotencyKey  Code = "invalid_idempotency_key"
	CodeInvalidVestingSchedule Code = "invalid_vesting_schedule"
	CodeApplicationNotFound    Code = "application_not_found"
	CodeStageNotFound          Code = "stage_not_found"
	CodeInvalidStageStatus     Code = "invalid_stage_status"
	CodeDecisionReasonRequired Code = "decision_reason_required"
	CodeEditNoteRequired       Code = "edit_note_required"
	CodeDocumentRequired       Code = "document_required"
)

// Error is an expected, recoverable business condition.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// Is matches any *Error carrying the same code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy carrying the given details.
func (e *Error) WithDetails(d map[string]any) *Error {
	out := *e
	out.Details = d
	return &out
}

// CodeOf returns the business code of err, or "" for unexpected failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBusiness reports whether err is an expected domain condition.
func IsBusiness(err error) bool { return CodeOf(err) != "" }

var (
	ErrInvalidSelection            = New(CodeInvalidSelection, "invalid share selection")
	ErrNoExercisableShares         = New(CodeNoExercisableShares, "no exercisable shares are available")
	ErrSharesExceedEligibility     = New(CodeSharesExceedEligibility, "requested shares exceed exercisable shares")
	ErrExerciseIneligible          = New(CodeExerciseIneligible, "employee is not eligible to exercise shares")
	ErrInterestTypeNotAllowed      = New(CodeInterestTypeNotAllowed, "interest type is not allowed by org policy")
	ErrRepaymentMethodNotAllowed   = New(CodeRepaymentMethodNotAllowed, "repayment method is not allowed by org policy")
	ErrInvalidTerm                 = New(CodeInvalidTerm, "loan term is outside of org policy bounds")
	ErrVariableRateMissing         = New(CodeVariableRateMissing, "variable rate settings are required")
	ErrNoQuoteOptions              = New(CodeNoQuoteOptions, "no loan quote options could be generated")
	ErrPolicyOutOfDate             = New(CodePolicyOutOfDate, "org policy changed since the quote was taken")
	ErrMaritalStatusMismatch       = New(CodeMaritalStatusMismatch, "marital status does not match our records")
	ErrSpouseInfoRequired          = New(CodeSpouseInfoRequired, "spouse information is required")
	ErrInsufficientAvailableShares = New(CodeInsufficientAvailableShares, "not enough available vested shares")
	ErrGrantNotFound               = New(CodeGrantNotFound, "grant not found")
	ErrInvalidStatus               = New(CodeInvalidStatus, "operation not allowed in current status")
	ErrIdempotencyConflict         = New(CodeIdempotencyConflict, "idempotency key conflict")
	ErrConcurrentUpdate            = New(CodeConcurrentUpdate, "the loan application was updated by another request, refresh and retry")
	ErrMembershipNotFound          = New(CodeMembershipNotFound, "membership not found")

	ErrInvalidIdempotencyKey  = New(CodeInvalidIdempotencyKey, "idempotency key is invalid")
	ErrInvalidVestingSchedule = New(CodeInvalidVestingSchedule, "vesting schedule is invalid")
	ErrApplicationNotFound    = New(CodeApplicationNotFound, "loan application not found")
	ErrStageNotFound          = New(CodeStageNotFound, "workflow stage not found")
	ErrInvalidStageStatus     = New(CodeInvalidStageStatus, "invalid workflow stage status")
	ErrDecisionReasonRequired = New(CodeDecisionReasonRequired, "decision reason is required when rejecting")
	ErrEditNoteRequired       = New(CodeEditNoteRequired, "note is required for loan edits")
	ErrDocumentRequired       = New(CodeDocumentRequired, "required documents must be uploaded before completing the stage")
)
