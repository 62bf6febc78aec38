package importer

import (
	"fmt"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// AssignBoneRoles applies the model's humanoid declarations onto its
// nodes. Declarations referencing out-of-range node indices are
// skipped; they are not an error. Later declarations for the same node
// overwrite earlier ones.
func AssignBoneRoles(m *vrm.Model) {
	for _, d := range m.Humanoid {
		if d.NodeIndex < 0 || d.NodeIndex >= len(m.Nodes) {
			continue
		}
		m.Nodes[d.NodeIndex].Role = d.Role
	}
}

// BuildAvatar maps every produced (node, transform) pair to the node's
// assigned role (empty for unassigned nodes) and hands the description
// to host avatar construction. Host-side validation failures propagate.
func BuildAvatar(eng runtime.Engine, m *vrm.Model, nodeMap map[*vrm.Node]runtime.Transform) (runtime.Avatar, error) {
	bindings := make([]runtime.BoneBinding, 0, len(m.Nodes)+1)
	if t, ok := nodeMap[m.Root]; ok {
		bindings = append(bindings, runtime.BoneBinding{Role: m.Root.Role.String(), Transform: t})
	}
	for _, node := range m.Nodes {
		t, ok := nodeMap[node]
		if !ok {
			continue
		}
		bindings = append(bindings, runtime.BoneBinding{Role: node.Role.String(), Transform: t})
	}

	avatar, err := eng.CreateAvatar(m.Name, bindings)
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}
	return avatar, nil
}
