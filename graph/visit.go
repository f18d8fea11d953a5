package graph

// Edge describes one dependency position during a traversal. Branches
// carries the last-sibling flag of every level down to and including this
// edge, which is enough to render a tree without the callback keeping
// state. Node is nil when the target was fetched but never analyzed.
type Edge struct {
	Specifier string
	Location  string
	Node      *ModuleNode
	Cycle     bool
	Last      bool
	Branches  []bool
}

// Visit walks the dependency tree below root depth first, in resolution
// order. The callback receives one edge per dependency; returning false
// prunes the subtree below it. An edge back to a module already on the
// current path is reported with Cycle set and is never descended into, so
// traversal terminates on cyclic graphs.
func (g *Graph) Visit(root *ModuleNode, fn func(edge Edge) bool) {
	if root == nil {
		return
	}
	g.visit(root, fn, nil, map[string]bool{root.Location: true})
}

func (g *Graph) visit(node *ModuleNode, fn func(edge Edge) bool, branches []bool, path map[string]bool) {
	for index, resolution := range node.Resolved {
		last := index == len(node.Resolved)-1
		edge := Edge{
			Specifier: resolution.Specifier,
			Location:  resolution.Location,
			Cycle:     path[resolution.Location],
			Last:      last,
			Branches:  append(append([]bool(nil), branches...), last),
		}
		if target, ok := g.modules.Load(resolution.Location); ok {
			edge.Node = target.(*ModuleNode)
		}
		if !fn(edge) || edge.Cycle || edge.Node == nil {
			continue
		}
		path[resolution.Location] = true
		g.visit(edge.Node, fn, edge.Branches, path)
		delete(path, resolution.Location)
	}
}
