package model

import (
	"slices"

	"github.com/limaJavier/roomtabling/pkg/program"
	"github.com/samber/lo"
)

type objectiveStrategy struct {
	relaxed   bool // Completeness is relaxed to "at most one" per class and day
	usage     bool // Needs the room usage aggregates
	objective func(state constraintState) program.Objective
}

var strategies = map[Strategy]objectiveStrategy{
	MinUnusedCapacity:    {objective: unusedCapacityObjective},
	BalanceUsageVariance: {usage: true, objective: usageVarianceObjective},
	MaxScheduled:         {relaxed: true, objective: scheduledObjective},
	MinVacantSlots:       {relaxed: true, objective: vacantSlotsObjective},
}

func Strategies() []Strategy {
	names := lo.Keys(strategies)
	slices.Sort(names)
	return names
}

// Sum over keys of (capacity(r) - studentCount(c)) * x
func unusedCapacityObjective(state constraintState) program.Objective {
	terms := lo.Map(state.indexer.Keys(), func(key Key, variable int) program.Term {
		unused := state.input.Rooms[key.Room].Capacity - state.input.Classes[key.Class].StudentCount
		return program.Term{Var: variable, Coeff: float64(unused)}
	})

	return program.Objective{
		Name:      string(MinUnusedCapacity),
		Direction: program.Minimize,
		Expr:      program.Expr{Linear: program.LinearExpr{Terms: terms}},
	}
}

// Sum over rooms of (u_r - mean)^2. Completeness is exact, so the total usage is the number of required
// (class, day) pairs and the mean is a constant: the objective expands to u_r^2 - 2*mean*u_r + mean^2.
func usageVarianceObjective(state constraintState) program.Objective {
	mean := float64(requiredDemands(state.allowed)) / float64(len(state.input.Rooms))

	linear := program.NewLinearExpr()
	quadratic := make([]program.QuadTerm, 0, len(state.usage))
	for _, usage := range state.usage {
		linear = linear.AddTerm(usage, -2*mean).AddConstant(mean * mean)
		quadratic = append(quadratic, program.QuadTerm{Var1: usage, Var2: usage, Coeff: 1})
	}

	return program.Objective{
		Name:      string(BalanceUsageVariance),
		Direction: program.Minimize,
		Expr:      program.Expr{Linear: linear, Quadratic: quadratic},
	}
}

func scheduledObjective(state constraintState) program.Objective {
	return program.Objective{
		Name:      string(MaxScheduled),
		Direction: program.Maximize,
		Expr:      program.Expr{Linear: program.Sum(lo.Range(state.indexer.Len())...)},
	}
}

// Vacant (room, hour, day) triples: supply - sum of span(c) * x
func vacantSlotsObjective(state constraintState) program.Objective {
	supply := len(state.input.Rooms) * state.slots * len(state.days)

	terms := lo.Map(state.indexer.Keys(), func(key Key, variable int) program.Term {
		return program.Term{Var: variable, Coeff: -float64(state.spans[key.Class])}
	})

	return program.Objective{
		Name:      string(MinVacantSlots),
		Direction: program.Minimize,
		Expr:      program.Expr{Linear: program.LinearExpr{Terms: terms, Constant: float64(supply)}},
	}
}

// requiredDemands counts the (class, day) pairs that must be scheduled
func requiredDemands(allowed [][]bool) int {
	return lo.SumBy(allowed, func(days []bool) int { return lo.Count(days, true) })
}
