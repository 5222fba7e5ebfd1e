package stats

// CrossTab is a contingency table: value of A -> value of B -> occurrences.
type CrossTab[A, B comparable] map[A]map[B]int

// CrossTabulate pairs xs[i] with ys[i] for every index both sequences share and
// counts each pair. Elements past the shorter sequence are ignored.
func CrossTabulate[A, B comparable](xs []A, ys []B) CrossTab[A, B] {
	table := make(CrossTab[A, B])
	n := min(len(xs), len(ys))
	for i := 0; i < n; i++ {
		row, ok := table[xs[i]]
		if !ok {
			row = make(map[B]int)
			table[xs[i]] = row
		}
		row[ys[i]]++
	}
	return table
}

// Total returns the number of pairs counted in the table.
func (t CrossTab[A, B]) Total() int {
	total := 0
	for _, row := range t {
		for _, count := range row {
			total += count
		}
	}
	return total
}
