package query

// Row is one element of a parent's child list after expansion. Child is nil
// on the sentinel row kept for parents with no children.
type Row[P, C any] struct {
	Index  int
	Parent P
	Child  *C
}

// Expand flattens each parent's children into rows, one per child, keeping a
// single sentinel row for parents without children so they survive the join.
func Expand[P, C any](parents []P, children func(P) []C) []Row[P, C] {
	rows := make([]Row[P, C], 0, len(parents))
	for i, parent := range parents {
		list := children(parent)
		if len(list) == 0 {
			rows = append(rows, Row[P, C]{Index: i, Parent: parent})
			continue
		}
		for j := range list {
			child := list[j]
			rows = append(rows, Row[P, C]{Index: i, Parent: parent, Child: &child})
		}
	}
	return rows
}

// Resolve joins every non-sentinel row's child through fn.
func Resolve[P, C, D any](rows []Row[P, C], fn func(C) D) []Row[P, D] {
	out := make([]Row[P, D], 0, len(rows))
	for _, row := range rows {
		next := Row[P, D]{Index: row.Index, Parent: row.Parent}
		if row.Child != nil {
			d := fn(*row.Child)
			next.Child = &d
		}
		out = append(out, next)
	}
	return out
}

// Regroup folds rows back into one result per parent in original order,
// dropping sentinel rows. build always receives a non-nil child slice.
func Regroup[P, C, R any](rows []Row[P, C], build func(P, []C) R) []R {
	out := make([]R, 0)
	for start := 0; start < len(rows); {
		end := start
		children := make([]C, 0)
		for end < len(rows) && rows[end].Index == rows[start].Index {
			if rows[end].Child != nil {
				children = append(children, *rows[end].Child)
			}
			end++
		}
		out = append(out, build(rows[start].Parent, children))
		start = end
	}
	return out
}
