// Package flare projects the materialized tree into the nested name/children
// structure consumed by hierarchical visualization tooling.
package flare

import "github.com/arbolab/wdtree/internal/types"

// singleEntriesName labels the synthetic node leaf children are grouped under.
const singleEntriesName = "singleEntries"

// FromTree converts a tree node and its descendants into a flare structure.
// The conversion is pure: it never mutates the tree and never re-queries the
// service. Node names are raw identifiers; use WithLabels for a labeled copy.
func FromTree(node *types.TreeNode) *types.FlareNode {
	if node == nil {
		return nil
	}
	converted := &types.FlareNode{Name: node.ID}
	for _, child := range node.Children {
		converted.Children = append(converted.Children, FromTree(child))
	}
	return converted
}

// WithLabels returns a relabeled copy of the flare structure: Name carries the
// resolved label when one is known, and NodeID keeps the raw identifier.
// Identifiers without a label keep the identifier as the name.
func WithLabels(node *types.FlareNode, labels map[string]string) *types.FlareNode {
	if node == nil {
		return nil
	}
	relabeled := &types.FlareNode{Name: node.Name, NodeID: node.Name}
	if label, found := labels[node.Name]; found && label != "" {
		relabeled.Name = label
	}
	for _, child := range node.Children {
		relabeled.Children = append(relabeled.Children, WithLabels(child, labels))
	}
	return relabeled
}

// GroupSingles returns a copy of the flare structure in which the childless
// children of every node are gathered under one synthetic "singleEntries"
// node, keeping large fan-outs readable in tree layouts. Nodes without leaf
// children are copied unchanged.
func GroupSingles(node *types.FlareNode) *types.FlareNode {
	if node == nil {
		return nil
	}
	grouped := &types.FlareNode{Name: node.Name, NodeID: node.NodeID}
	if len(node.Children) == 0 {
		return grouped
	}
	var singles []*types.FlareNode
	for _, child := range node.Children {
		if len(child.Children) == 0 {
			singles = append(singles, GroupSingles(child))
			continue
		}
		grouped.Children = append(grouped.Children, GroupSingles(child))
	}
	if len(singles) > 0 {
		grouped.Children = append(grouped.Children, &types.FlareNode{
			Name:     singleEntriesName,
			Children: singles,
		})
	}
	return grouped
}

// Edges flattens the structure into its (parent, child) name pairs in
// pre-order. It is the inverse view used to check that a conversion preserved
// the tree shape.
func Edges(node *types.FlareNode) [][2]string {
	var edges [][2]string
	var walk func(current *types.FlareNode)
	walk = func(current *types.FlareNode) {
		if current == nil {
			return
		}
		for _, child := range current.Children {
			edges = append(edges, [2]string{current.Name, child.Name})
			walk(child)
		}
	}
	walk(node)
	return edges
}
