package flare

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arbolab/wdtree/internal/types"
)

// sampleTree builds A -> (B -> D, C) by hand.
func sampleTree() *types.TreeNode {
	leafD := &types.TreeNode{ID: "D", Paths: [][]string{{"A", "B", "D"}}}
	branchB := &types.TreeNode{ID: "B", Children: []*types.TreeNode{leafD}, Paths: [][]string{{"A", "B"}}}
	leafC := &types.TreeNode{ID: "C", Paths: [][]string{{"A", "C"}}}
	return &types.TreeNode{ID: "A", Children: []*types.TreeNode{branchB, leafC}, Paths: [][]string{{"A"}}}
}

func TestFromTreePreservesEdges(t *testing.T) {
	t.Parallel()
	converted := FromTree(sampleTree())
	expected := [][2]string{{"A", "B"}, {"B", "D"}, {"A", "C"}}
	edges := Edges(converted)
	sortEdges(expected)
	sortEdges(edges)
	if difference := cmp.Diff(expected, edges); difference != "" {
		t.Fatalf("conversion changed the edge set (-want +got):\n%s", difference)
	}
	if converted.Children[1].Children != nil {
		t.Fatal("expected leaf C to carry no children field")
	}
}

func TestFromTreeDoesNotMutateTheTree(t *testing.T) {
	t.Parallel()
	tree := sampleTree()
	_ = FromTree(tree)
	if difference := cmp.Diff(sampleTree(), tree); difference != "" {
		t.Fatalf("conversion mutated the tree (-want +got):\n%s", difference)
	}
}

func TestWithLabelsKeepsRawIdentifier(t *testing.T) {
	t.Parallel()
	labels := map[string]string{"A": "root thing", "D": "deep thing"}
	relabeled := WithLabels(FromTree(sampleTree()), labels)
	if relabeled.Name != "root thing" || relabeled.NodeID != "A" {
		t.Fatalf("expected labeled root with raw id, got %q (%q)", relabeled.Name, relabeled.NodeID)
	}
	branchB := relabeled.Children[0]
	if branchB.Name != "B" || branchB.NodeID != "B" {
		t.Fatalf("expected unlabeled node to fall back to its identifier, got %q (%q)", branchB.Name, branchB.NodeID)
	}
	if branchB.Children[0].Name != "deep thing" {
		t.Fatalf("expected nested nodes to be relabeled, got %q", branchB.Children[0].Name)
	}
}

func TestGroupSinglesGathersLeafChildren(t *testing.T) {
	t.Parallel()
	grouped := GroupSingles(FromTree(sampleTree()))
	if len(grouped.Children) != 2 {
		t.Fatalf("expected branch B plus the singles node, got %d children", len(grouped.Children))
	}
	if grouped.Children[0].Name != "B" {
		t.Fatalf("expected branch B to stay in place, got %q", grouped.Children[0].Name)
	}
	singles := grouped.Children[1]
	if singles.Name != "singleEntries" {
		t.Fatalf("expected a singleEntries node, got %q", singles.Name)
	}
	if len(singles.Children) != 1 || singles.Children[0].Name != "C" {
		t.Fatalf("expected leaf C to be grouped, got %v", singles.Children)
	}
}

func TestGroupSinglesWithoutLeavesAddsNoNode(t *testing.T) {
	t.Parallel()
	tree := &types.FlareNode{
		Name: "A",
		Children: []*types.FlareNode{
			{Name: "B", Children: []*types.FlareNode{{Name: "C"}}},
		},
	}
	grouped := GroupSingles(tree)
	if len(grouped.Children) != 1 {
		t.Fatalf("expected no synthetic node when every child has children, got %d", len(grouped.Children))
	}
}

func sortEdges(edges [][2]string) {
	sort.Slice(edges, func(left, right int) bool {
		if edges[left][0] != edges[right][0] {
			return edges[left][0] < edges[right][0]
		}
		return edges[left][1] < edges[right][1]
	})
}
