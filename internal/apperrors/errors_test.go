package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/limaJavier/roomtabling/pkg/solver"
)

func TestFromError(t *testing.T) {
	configError := &model.ConfigError{Field: "rooms[0].capacity", Reason: "must be positive"}

	cases := map[string]struct {
		err    error
		code   string
		status int
	}{
		"Config error":   {configError, ErrConfig.Code, http.StatusBadRequest},
		"Wrapped config": {&model.ModelBuildError{Reason: "inconsistent input", Err: configError}, ErrConfig.Code, http.StatusBadRequest},
		"Build error":    {&model.ModelBuildError{Reason: "pins overlap"}, ErrModelBuild.Code, http.StatusUnprocessableEntity},
		"Solver failure": {&solver.Failure{Solver: "cbc", Err: errors.New("exit status 1")}, ErrSolverFailure.Code, http.StatusBadGateway},
		"Canceled solve": {&solver.Failure{Solver: "gophersat", Err: context.Canceled}, ErrCanceled.Code, 499},
		"Unknown solver": {fmt.Errorf("%w \"kissat\"", solver.ErrUnknownSolver), ErrUnknownSolver.Code, http.StatusBadRequest},
		"Already typed":  {ErrValidation, ErrValidation.Code, http.StatusBadRequest},
		"Anything else":  {errors.New("boom"), ErrInternal.Code, http.StatusInternalServerError},
	}

	for name, testCase := range cases {
		t.Run(name, func(t *testing.T) {
			appErr := FromError(testCase.err)

			assert.Equal(t, testCase.code, appErr.Code)
			assert.Equal(t, testCase.status, appErr.Status)
			assert.True(t, errors.Is(appErr, testCase.err))
		})
	}

	assert.Nil(t, FromError(nil))
}
