package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrConfig        = New("CONFIG_ERROR", http.StatusBadRequest, "invalid model input")
	ErrModelBuild    = New("MODEL_BUILD_ERROR", http.StatusUnprocessableEntity, "model cannot be built")
	ErrSolverFailure = New("SOLVER_FAILURE", http.StatusBadGateway, "solver failed")
	ErrUnknownSolver = New("UNKNOWN_SOLVER", http.StatusBadRequest, "unknown solver")
	ErrValidation    = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrCanceled      = New("REQUEST_CANCELED", 499, "request canceled")
	ErrInternal      = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error. Input errors are matched before build errors, since a build error
// may wrap the input error that caused it.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	var configError *model.ConfigError
	var buildError *model.ModelBuildError
	var failure *solver.Failure
	switch {
	case errors.As(err, &e):
		return e
	case errors.As(err, &configError):
		return Wrap(err, ErrConfig.Code, ErrConfig.Status, configError.Error())
	case errors.As(err, &buildError):
		return Wrap(err, ErrModelBuild.Code, ErrModelBuild.Status, buildError.Error())
	case errors.Is(err, solver.ErrUnknownSolver):
		return Wrap(err, ErrUnknownSolver.Code, ErrUnknownSolver.Status, err.Error())
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCanceled.Code, ErrCanceled.Status, ErrCanceled.Message)
	case errors.As(err, &failure):
		return Wrap(err, ErrSolverFailure.Code, ErrSolverFailure.Status, failure.Error())
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}
