package importer

import (
	"fmt"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// BuildMesh creates the engine mesh resource for one mesh group.
// Groups carrying more than one vertex buffer fail fast: concatenating
// isolated vertex buffers is not implemented.
func BuildMesh(eng runtime.Engine, mg *vrm.MeshGroup) (runtime.Mesh, error) {
	if len(mg.Meshes) == 0 {
		return nil, fmt.Errorf("mesh group %q has no mesh data", mg.Name)
	}
	if len(mg.Meshes) > 1 {
		return nil, fmt.Errorf("mesh group %q: %d isolated vertex buffers: %w", mg.Name, len(mg.Meshes), ErrNotImplemented)
	}

	src := mg.Meshes[0]
	data := runtime.MeshData{
		Name:         mg.Name,
		Positions:    src.Positions,
		Normals:      src.Normals,
		UVs:          src.UVs,
		Joints:       src.Joints,
		Weights:      src.Weights,
		MorphTargets: src.MorphTargets,
	}
	for _, sm := range src.Submeshes {
		data.Submeshes = append(data.Submeshes, runtime.SubmeshData{
			Indices:       sm.Indices,
			MaterialIndex: sm.MaterialIndex,
		})
	}

	mesh, err := eng.CreateMesh(data)
	if err != nil {
		return nil, fmt.Errorf("mesh group %q: %w", mg.Name, err)
	}
	return mesh, nil
}
