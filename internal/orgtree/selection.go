package orgtree

import "github.com/google/uuid"

// BoothIDs returns the ids of every booth at or below n, in tree order.
func (n *Node) BoothIDs() []uuid.UUID {
	var ids []uuid.UUID
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Kind == KindBooth {
			if id, err := uuid.Parse(cur.ID); err == nil {
				ids = append(ids, id)
			}
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return ids
}

// Find returns the node with the given id, or nil.
func (n *Node) Find(id string) *Node {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.ID == id {
			return cur
		}
		stack = append(stack, cur.Children...)
	}
	return nil
}

// ExpandSelection resolves checked node ids of any kind to the set of booth ids
// they cover. A checked client or org unit covers all of its descendant booths.
// Ids that match no node are ignored.
func ExpandSelection(root *Node, checked []string) map[uuid.UUID]struct{} {
	selected := make(map[uuid.UUID]struct{})
	if root == nil || len(checked) == 0 {
		return selected
	}
	want := make(map[string]struct{}, len(checked))
	for _, id := range checked {
		want[id] = struct{}{}
	}

	stack := []*Node{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := want[cur.ID]; ok {
			for _, id := range cur.BoothIDs() {
				selected[id] = struct{}{}
			}
			continue
		}
		stack = append(stack, cur.Children...)
	}
	return selected
}
