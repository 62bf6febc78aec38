package importer

import (
	"fmt"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// BuildRenderer attaches the renderer for one node with geometry.
// A skin or any morph target selects a skinned renderer bound to the
// skin's joint transforms in declaration order; otherwise a static
// mesh renderer is attached. Submesh materials are positional.
func BuildRenderer(
	eng runtime.Engine,
	node *vrm.Node,
	t runtime.Transform,
	mesh runtime.Mesh,
	materials []runtime.Material,
	nodeMap map[*vrm.Node]runtime.Transform,
) (runtime.Renderer, error) {
	mg := node.MeshGroup
	if len(mg.Meshes) != 1 {
		return nil, fmt.Errorf("node %q: %d isolated vertex buffers: %w", node.Name, len(mg.Meshes), ErrNotImplemented)
	}
	src := mg.Meshes[0]

	mats := make([]runtime.Material, len(src.Submeshes))
	for i, sm := range src.Submeshes {
		if sm.MaterialIndex < 0 || sm.MaterialIndex >= len(materials) {
			return nil, fmt.Errorf("node %q: submesh %d material %d: %w", node.Name, i, sm.MaterialIndex, ErrOutOfRange)
		}
		mats[i] = materials[sm.MaterialIndex]
	}

	if mg.Skin == nil && len(src.MorphTargets) == 0 {
		r, err := eng.CreateMeshRenderer(t, mesh, mats)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}
		return r, nil
	}

	var joints []runtime.Transform
	var rootBone runtime.Transform
	if mg.Skin != nil {
		joints = make([]runtime.Transform, len(mg.Skin.Joints))
		for i, j := range mg.Skin.Joints {
			jt, ok := nodeMap[j]
			if !ok {
				return nil, fmt.Errorf("node %q: skin joint %d %q not in hierarchy: %w", node.Name, i, j.Name, ErrOutOfRange)
			}
			joints[i] = jt
		}
		if mg.Skin.Root != nil {
			rootBone = nodeMap[mg.Skin.Root]
		}
	}

	r, err := eng.CreateSkinnedRenderer(t, mesh, mats, joints, rootBone)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.Name, err)
	}
	return r, nil
}
