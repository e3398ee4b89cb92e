// Package orgtree projects flat client, org unit and booth lists into a single
// rooted tree used for hierarchical booth selection.
package orgtree

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind identifies which entity a Node projects.
type Kind string

const (
	KindRoot    Kind = "root"
	KindClient  Kind = "client"
	KindOrgUnit Kind = "org_unit"
	KindBooth   Kind = "booth"
)

// RootID is the identifier of the synthetic container node above all clients.
const RootID = "ROOT"

// Node is one element of the org tree. Booth nodes are leaves.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children"`
}

// Value is the identifier a selection UI reports for this node.
func (n *Node) Value() string { return n.ID }

// Label is the display text for this node.
func (n *Node) Label() string { return n.Name }

// Build assembles the tree. Children at every level are ordered by display name
// using locale-aware collation, ties broken by id, so the result does not depend
// on input order.
//
// Org units whose parent is missing, belongs to another client, or closes a
// parent cycle are attached directly under their client. Org units of unknown
// clients and booths of unknown org units are omitted. Records sharing an id
// collapse to the one with the smallest owner and name, wherever it appears.
func Build(clients []models.Client, orgUnits []models.OrgUnit, booths []models.Booth) *Node {
	return BuildWithLocale(language.Und, clients, orgUnits, booths)
}

// BuildWithLocale is Build with an explicit collation locale.
func BuildWithLocale(tag language.Tag, clients []models.Client, orgUnits []models.OrgUnit, booths []models.Booth) *Node {
	root := newNode(RootID, "", KindRoot)

	clientNodes := make(map[uuid.UUID]*Node, len(clients))
	for id, c := range smallestByID(clients, clientID, clientKey, nil) {
		n := newNode(id.String(), c.Name, KindClient)
		clientNodes[id] = n
		root.Children = append(root.Children, n)
	}

	units := smallestByID(orgUnits, orgUnitID, orgUnitKey, func(u models.OrgUnit) bool {
		_, ok := clientNodes[u.ClientID]
		return ok
	})
	unitNodes := make(map[uuid.UUID]*Node, len(units))
	for id, u := range units {
		unitNodes[id] = newNode(id.String(), u.Name, KindOrgUnit)
	}

	parents := resolveParents(units)
	for id, u := range units {
		node := unitNodes[id]
		if parentID, ok := parents[id]; ok {
			parent := unitNodes[parentID]
			parent.Children = append(parent.Children, node)
			continue
		}
		client := clientNodes[u.ClientID]
		client.Children = append(client.Children, node)
	}

	kept := smallestByID(booths, boothID, boothKey, func(b models.Booth) bool {
		_, ok := unitNodes[b.OrgUnitID]
		return ok
	})
	for id, b := range kept {
		unit := unitNodes[b.OrgUnitID]
		unit.Children = append(unit.Children, newNode(id.String(), b.DisplayName(), KindBooth))
	}

	sortChildren(root, collate.New(tag))
	return root
}

// smallestByID keeps one admitted item per id: the one with the smallest key.
func smallestByID[T any](items []T, id func(T) uuid.UUID, key func(T) string, admit func(T) bool) map[uuid.UUID]T {
	out := make(map[uuid.UUID]T, len(items))
	for _, it := range items {
		if admit != nil && !admit(it) {
			continue
		}
		k := id(it)
		if cur, ok := out[k]; ok && key(cur) <= key(it) {
			continue
		}
		out[k] = it
	}
	return out
}

func clientID(c models.Client) uuid.UUID   { return c.ID }
func orgUnitID(u models.OrgUnit) uuid.UUID { return u.ID }
func boothID(b models.Booth) uuid.UUID     { return b.ID }

func clientKey(c models.Client) string { return c.Name }

func orgUnitKey(u models.OrgUnit) string {
	parent := ""
	if u.ParentID != nil {
		parent = u.ParentID.String()
	}
	return u.ClientID.String() + "\x00" + parent + "\x00" + u.Name
}

func boothKey(b models.Booth) string { return b.OrgUnitID.String() + "\x00" + b.DisplayName() }

func newNode(id, name string, kind Kind) *Node {
	return &Node{ID: id, Name: name, Kind: kind, Children: []*Node{}}
}

// resolveParents maps each org unit to its parent unit. Units that should be
// top-level are absent from the result.
func resolveParents(units map[uuid.UUID]models.OrgUnit) map[uuid.UUID]uuid.UUID {
	parents := make(map[uuid.UUID]uuid.UUID, len(units))
	for id, u := range units {
		if u.ParentID == nil {
			continue
		}
		p, ok := units[*u.ParentID]
		if !ok || p.ClientID != u.ClientID || p.ID == id {
			continue
		}
		parents[id] = p.ID
	}
	breakCycles(parents)
	return parents
}

// breakCycles detaches the lowest id of every parent cycle, which makes that
// unit top-level and keeps every other member of the cycle reachable.
func breakCycles(parents map[uuid.UUID]uuid.UUID) {
	ids := make([]uuid.UUID, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[uuid.UUID]int, len(parents))

	for _, start := range ids {
		var path []uuid.UUID
		cur := start
		for state[cur] != done {
			if state[cur] == visiting {
				cycle := path[indexOf(path, cur):]
				lowest := cycle[0]
				for _, id := range cycle[1:] {
					if lessID(id, lowest) {
						lowest = id
					}
				}
				delete(parents, lowest)
				break
			}
			state[cur] = visiting
			path = append(path, cur)
			next, ok := parents[cur]
			if !ok {
				break
			}
			cur = next
		}
		for _, id := range path {
			state[id] = done
		}
	}
}

func indexOf(path []uuid.UUID, id uuid.UUID) int {
	for i, p := range path {
		if p == id {
			return i
		}
	}
	return 0
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func sortChildren(n *Node, c *collate.Collator) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if cmp := c.CompareString(a.Name, b.Name); cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
	for _, child := range n.Children {
		sortChildren(child, c)
	}
}
