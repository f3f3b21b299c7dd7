package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, EnvDevelopment, cfg.Env)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "/api/v1", cfg.APIPrefix)
		assert.Equal(t, SolverConfig{
			Default:      "gophersat",
			TimeLimit:    time.Minute,
			MaxTimeLimit: 10 * time.Minute,
			CbcPath:      "cbc",
			MaxSearches:  int64(runtime.NumCPU()),
		}, cfg.Solver)
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("ENV", EnvProduction)
		t.Setenv("PORT", "9090")
		t.Setenv("LOG_FORMAT", "console")
		t.Setenv("SOLVER_DEFAULT", "cbc")
		t.Setenv("SOLVER_TIME_LIMIT", "15s")
		t.Setenv("SOLVER_CBC_PATH", "/opt/cbc/bin/cbc")
		t.Setenv("SOLVER_MAX_SEARCHES", "2")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, EnvProduction, cfg.Env)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, "cbc", cfg.Solver.Default)
		assert.Equal(t, 15*time.Second, cfg.Solver.TimeLimit)
		assert.Equal(t, "/opt/cbc/bin/cbc", cfg.Solver.CbcPath)
		assert.Equal(t, int64(2), cfg.Solver.MaxSearches)
	})

	t.Run("Malformed duration", func(t *testing.T) {
		t.Setenv("SOLVER_TIME_LIMIT", "soon")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, time.Minute, cfg.Solver.TimeLimit)
	})
}
