package model

// Key identifies an assignment variable. Every field is a position in the input: Slot is an offset from the grid start.
type Key struct {
	Class, Day, Room, Slot int
}

// indexer interface is design to give a dense index to every key of the variable space and vice versa
type indexer interface {
	// Returns the index of a key, false when the key was pruned from the variable space
	Index(key Key) (int, bool)
	// Returns the key of an index
	Key(index int) Key
	// Returns every key in index order
	Keys() []Key
	Len() int
}

type indexerImplementation struct {
	keys    []Key
	indices map[Key]int
}

// newIndexer enumerates classes, days, rooms and slots in this order. Filters prune keys before any constraint
// is generated, so the resulting order is deterministic for a given input.
func newIndexer(classes, days, rooms, slots int, filters []func(permutation []int) bool) indexer {
	generator := newPermutationGenerator(classes, days, rooms, slots)
	permutations := generator.ConstrainedPermutations(filters)

	indexer := &indexerImplementation{
		keys:    make([]Key, len(permutations)),
		indices: make(map[Key]int, len(permutations)),
	}
	for i, permutation := range permutations {
		key := Key{Class: permutation[0], Day: permutation[1], Room: permutation[2], Slot: permutation[3]}
		indexer.keys[i] = key
		indexer.indices[key] = i
	}
	return indexer
}

func (indexer *indexerImplementation) Index(key Key) (int, bool) {
	index, ok := indexer.indices[key]
	return index, ok
}

func (indexer *indexerImplementation) Key(index int) Key {
	return indexer.keys[index]
}

func (indexer *indexerImplementation) Keys() []Key {
	return indexer.keys
}

func (indexer *indexerImplementation) Len() int {
	return len(indexer.keys)
}
