package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"civicresolve/models"
)

var (
	ErrValidation                = errors.New("validation failed")
	ErrIllegalTransition         = errors.New("illegal transition")
	ErrNotAuthorized             = errors.New("not authorized")
	ErrMissingEvidence           = errors.New("missing evidence")
	ErrUnknownIssue              = errors.New("unknown issue")
	ErrUnknownContractor         = errors.New("unknown contractor")
	ErrContractorNotApproved     = errors.New("contractor not approved")
	ErrInvalidStateForAssignment = errors.New("invalid state for assignment")
	ErrAreaMismatch              = errors.New("contractor does not serve issue area")
	ErrDeleteNotAllowed          = errors.New("delete not allowed")
	ErrEditNotAllowed            = errors.New("edit not allowed")
	ErrInvalidRating             = errors.New("invalid rating")
	ErrIssueNotResolved          = errors.New("issue not resolved")
	ErrAlreadyExists             = errors.New("already exists")
	ErrNoImage                   = errors.New("no such image")
	ErrBackend                   = errors.New("backend error")
)

// FieldError is one violated constraint of a ValidationError.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError reports bad local input. It never reaches the backend.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasField reports whether field is among the violations.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func invalid(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}

// TransitionError describes a refused state change.
type TransitionError struct {
	From  models.IssueStatus
	To    models.IssueStatus
	Actor Actor
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s -> %s by %s: %v", e.From, e.To, strings.ToLower(string(e.Actor)), e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// BackendError wraps a failure of the authoritative store or its transport.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// WrapBackend wraps a collaborator failure in a BackendError. Errors that
// already are one pass through so the transport's operation name wins.
func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

var codes = []struct {
	code string
	err  error
}{
	{"validation_error", ErrValidation},
	{"illegal_transition", ErrIllegalTransition},
	{"not_authorized", ErrNotAuthorized},
	{"missing_evidence", ErrMissingEvidence},
	{"unknown_issue", ErrUnknownIssue},
	{"unknown_contractor", ErrUnknownContractor},
	{"contractor_not_approved", ErrContractorNotApproved},
	{"invalid_state_for_assignment", ErrInvalidStateForAssignment},
	{"area_mismatch", ErrAreaMismatch},
	{"delete_not_allowed", ErrDeleteNotAllowed},
	{"edit_not_allowed", ErrEditNotAllowed},
	{"invalid_rating", ErrInvalidRating},
	{"issue_not_resolved", ErrIssueNotResolved},
	{"already_exists", ErrAlreadyExists},
	{"no_image", ErrNoImage},
}

// Code returns the stable wire code for err's kind, or "backend_error".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "backend_error"
}

// FromCode maps a wire code back to its sentinel. Unknown codes map to ErrBackend.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return ErrBackend
}
