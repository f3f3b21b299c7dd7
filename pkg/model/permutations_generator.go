package model

// unassigned marks a permutation position that is not fixed yet
const unassigned = -1

type permutationGenerator interface {
	// Attributes in a permutation follow the order of the domains given to the generator.
	// Predicates are evaluated on partial permutations, so they must hold whenever a position they rely on is unassigned.
	//
	// Example:
	//
	//	generator := newPermutationGenerator(classes, days, rooms, slots)
	//
	//	permutations := generator.ConstrainedPermutations([]func(permutation []int) bool{
	//		func(permutation []int) bool {
	//			// Verify "permutation[1] == unassigned", since the predicate "permutation[1] == 1" relies in this index
	//			return permutation[1] == unassigned || permutation[1] == 1
	//		},
	//	})
	ConstrainedPermutations(predicates []func(permutation []int) bool) [][]int
}

func newPermutationGenerator(domains ...int) permutationGenerator {
	return &permutationGeneratorImplementation{domains: domains}
}

type permutationGeneratorImplementation struct {
	domains []int
}

func (generator *permutationGeneratorImplementation) ConstrainedPermutations(predicates []func(permutation []int) bool) [][]int {
	total := 1
	for _, domain := range generator.domains {
		total *= domain
	}

	permutation := make([]int, len(generator.domains))
	for i := range permutation {
		permutation[i] = unassigned
	}

	permutations := make([][]int, 0, total)
	generator.constrainedPermutations(predicates, 0, permutation, &permutations)
	return permutations
}

func (generator *permutationGeneratorImplementation) constrainedPermutations(
	predicates []func(permutation []int) bool,
	currentDomain int,
	permutation []int,
	permutations *[][]int) {

	if currentDomain >= len(generator.domains) {
		permutationCopy := make([]int, len(permutation))
		copy(permutationCopy, permutation)
		*permutations = append(*permutations, permutationCopy)
		return
	}

	for i := range generator.domains[currentDomain] {
		permutation[currentDomain] = i
		predicateViolated := false
		for _, predicate := range predicates {
			if !predicate(permutation) {
				predicateViolated = true
				break
			}
		}

		if predicateViolated {
			continue
		}

		generator.constrainedPermutations(predicates, currentDomain+1, permutation, permutations)
	}

	permutation[currentDomain] = unassigned
}
