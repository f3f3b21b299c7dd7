package main

import (
	"os/exec"
	"testing"

	"github.com/limaJavier/roomtabling/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("00:01:01.12"))
	assert.Equal(t, int64(60*60*1000+60*1000+1000+120), parseDuration("01:01:01.12"))
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("1:01.12"))
	assert.Equal(t, int64(120), parseDuration("0:00.12"))
	assert.Equal(t, int64(120), parseDuration("00:00:00.12"))
}

func TestParseTimeOutput(t *testing.T) {
	assert.Equal(t, int64(2340), parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:02.34"))
	assert.Equal(t, float32(50), parseMemoryLine("\tMaximum resident set size (kbytes): 51200"))
	assert.Equal(t, int64(97), parseCpuPercentageLine("\tPercent of CPU this job got: 97%"))
}

func TestGetTests(t *testing.T) {
	tests := getTests()

	require.NotEmpty(t, tests)
	weekly, ok := lo.Find(tests, func(test TestMetadata) bool { return test.Name == instancesDirectory+"small_weekly.json" })
	require.True(t, ok)
	assert.Equal(t, TestMetadata{Name: instancesDirectory + "small_weekly.json", Classes: 3, Rooms: 2, Days: 2, Slots: 3}, weekly)

	daily, ok := lo.Find(tests, func(test TestMetadata) bool { return test.Name == instancesDirectory+"daily.json" })
	require.True(t, ok)
	assert.Equal(t, 1, daily.Days)
}

func TestToRecord(t *testing.T) {
	record := toRecord(BenchmarkResult{
		Solver:        "gophersat",
		Strategy:      model.MaxScheduled,
		Test:          TestMetadata{Name: "weekly.json", Classes: 12, Rooms: 7, Days: 5, Slots: 12},
		Duration:      1500,
		Memory:        12.5,
		CpuPercentage: 99,
		Result:        unsolved,
	})

	assert.Equal(t, []string{"gophersat", "maxScheduled", "weekly.json", "12", "7", "5", "12", "0", "1500", "12.5", "99", "unsolved", ""}, record)
}


func TestExitResult(t *testing.T) {
	t.Run("Correct flow", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "exit 20")
		err := cmd.Run()
		require.Error(t, err)

		result, ok := exitResult(cmd.ProcessState)

		require.True(t, ok)
		assert.Equal(t, unsolved, result)
	})

	t.Run("Unexpected exit code", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "exit 3")
		_ = cmd.Run()

		_, ok := exitResult(cmd.ProcessState)

		assert.False(t, ok)
	})

	t.Run("Missing executable", func(t *testing.T) {
		cmd := exec.Command("../../bin/missing-roomtable")
		err := cmd.Run()
		require.Error(t, err)

		_, ok := exitResult(cmd.ProcessState)

		assert.False(t, ok)
	})
}
