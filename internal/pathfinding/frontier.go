package pathfinding

// searchNode is one frontier state of a query. Predecessor links form the
// ancestry chain used to rebuild the path once the destination is popped.
type searchNode[N comparable] struct {
	node        N
	cost        float64
	predecessor *searchNode[N]
	seq         uint64

	// leg is the weight of the edge from predecessor.
	leg float64
}

// frontier is a min-heap of *searchNode ordered by cost, then by push order.
// Stale entries are not removed; they are skipped when popped.
type frontier[N comparable] []*searchNode[N]

func (f frontier[N]) Len() int { return len(f) }

func (f frontier[N]) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].seq < f[j].seq
}

func (f frontier[N]) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier[N]) Push(x any) { *f = append(*f, x.(*searchNode[N])) }

func (f *frontier[N]) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}
