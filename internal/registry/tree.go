package registry

import "sort"

// TreeNode is one node of a resolved containment tree.
type TreeNode struct {
	ID       string      `json:"id"`
	Token    string      `json:"token"`
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children,omitempty"`
}

// buildTree arranges a flat entity list into a forest. Every entity
// appears exactly once: records without a parent, and records whose
// parent id does not resolve within the list, become roots. Children are
// sorted by name at every level.
func buildTree[T any](items []*T, node func(*T) *TreeNode, parentID func(*T) string) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(items))
	for _, it := range items {
		n := node(it)
		nodes[n.ID] = n
	}
	roots := []*TreeNode{}
	for _, it := range items {
		n := nodes[node(it).ID]
		pid := parentID(it)
		if pid == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[pid]
		if !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	sortTree(roots)
	return roots
}

func sortTree(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}
