package dto

import (
	"encoding/json"

	"github.com/limaJavier/roomtabling/pkg/model"
)

// SolveQuery carries the per-request solver overrides of POST /schedules/solve
type SolveQuery struct {
	Solver    string `form:"solver"`
	TimeLimit string `form:"timeLimit"` // Go duration, e.g. "30s"
}

// VerifyRequest checks a schedule against the input it was built for. Input is kept raw so it goes through the
// same decoding as a solve request.
type VerifyRequest struct {
	Input    json.RawMessage `json:"input" binding:"required"`
	Schedule model.Schedule  `json:"schedule"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

type OptionsResponse struct {
	Strategies    []model.Strategy `json:"strategies"`
	Solvers       []string         `json:"solvers"`
	DefaultSolver string           `json:"defaultSolver"`
}
