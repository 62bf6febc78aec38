package importer

import (
	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// BuildHierarchy creates one engine transform per source node reachable
// from root, depth-first in source child order, and returns the created
// root plus the total node-to-transform map.
func BuildHierarchy(eng runtime.Engine, root *vrm.Node) (runtime.Transform, map[*vrm.Node]runtime.Transform) {
	nodeMap := map[*vrm.Node]runtime.Transform{}

	var build func(node *vrm.Node, parent runtime.Transform) runtime.Transform
	build = func(node *vrm.Node, parent runtime.Transform) runtime.Transform {
		t := eng.CreateTransform(node.Name)
		t.SetLocalPosition(node.Translation)
		t.SetLocalRotation(node.Rotation)
		if parent != nil {
			t.SetParent(parent, false)
		}
		nodeMap[node] = t
		for _, child := range node.Children {
			build(child, t)
		}
		return t
	}

	return build(root, nil), nodeMap
}

// SubstituteRoot grafts the freshly built hierarchy under a
// host-supplied root: every direct child of the created root is
// re-parented (preserving its world transform) and the map entry for
// the source root is rewritten to the supplied transform. With a nil
// supplied root the created one is kept.
func SubstituteRoot(created, supplied runtime.Transform, srcRoot *vrm.Node, nodeMap map[*vrm.Node]runtime.Transform) runtime.Transform {
	if supplied == nil {
		return created
	}
	for _, child := range created.Children() {
		child.SetParent(supplied, true)
	}
	nodeMap[srcRoot] = supplied
	return supplied
}
