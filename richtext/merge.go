package richtext

// mergeLists folds a sibling sequence so that each run of adjacent numbered
// lists becomes a single list. The merged list keeps the first list's start
// and concatenates the items in document order; items taken from the later
// lists lose their value so the discarded starts never reach the output.
// Bullet lists and any other node end a run, nil nodes are dropped. The
// input slice and its nodes are left untouched.
func mergeLists(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	var run *List
	for _, n := range nodes {
		if isNil(n) {
			continue
		}
		l, ok := n.(*List)
		if !ok || !l.Ordered() {
			run = nil
			out = append(out, n)
			continue
		}
		if run == nil {
			run = &List{
				ListType: ListNumber,
				Start:    l.Start,
				Items:    append([]Node(nil), l.Items...),
			}
			out = append(out, run)
			continue
		}
		for _, it := range l.Items {
			run.Items = append(run.Items, withoutValue(it))
		}
	}
	return out
}

func withoutValue(n Node) Node {
	li, ok := n.(*ListItem)
	if !ok || li == nil || li.Value == 0 {
		return n
	}
	cp := *li
	cp.Value = 0
	return &cp
}
