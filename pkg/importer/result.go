package importer

import (
	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// ModelMap is the bidirectional index between source entities and the
// engine objects built from them. Ownership stays with the scene tree;
// the maps are pure cross-reference.
type ModelMap struct {
	Nodes      map[*vrm.Node]runtime.Transform
	Transforms map[runtime.Transform]*vrm.Node
	Meshes     map[*vrm.MeshGroup]runtime.Mesh
	MeshGroups map[runtime.Mesh]*vrm.MeshGroup
}

// NewModelMap creates an empty map set.
func NewModelMap() ModelMap {
	return ModelMap{
		Nodes:      map[*vrm.Node]runtime.Transform{},
		Transforms: map[runtime.Transform]*vrm.Node{},
		Meshes:     map[*vrm.MeshGroup]runtime.Mesh{},
		MeshGroups: map[runtime.Mesh]*vrm.MeshGroup{},
	}
}

func (m *ModelMap) addMesh(mg *vrm.MeshGroup, mesh runtime.Mesh) {
	m.Meshes[mg] = mesh
	m.MeshGroups[mesh] = mg
}

func (m *ModelMap) setNodes(nodeMap map[*vrm.Node]runtime.Transform) {
	m.Nodes = nodeMap
	m.Transforms = make(map[runtime.Transform]*vrm.Node, len(nodeMap))
	for node, t := range nodeMap {
		m.Transforms[t] = node
	}
}

// ModelAsset is the output object graph of one import. The caller owns
// it once Load returns.
type ModelAsset struct {
	Root      runtime.Transform
	Avatar    runtime.Avatar
	Animator  runtime.Animator
	Renderers []runtime.Renderer
	Map       ModelMap
}
