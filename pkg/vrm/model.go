// Package vrm defines the parsed VRM model description consumed by the
// importer, and the glTF/VRM document adapter that produces it.
package vrm

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
)

// ByteProvider fetches the encoded bytes of one texture image.
// Returning an empty slice is valid and yields a default blank texture.
type ByteProvider func(ctx context.Context) ([]byte, error)

// Model is the parsed source description of a VRM avatar.
// It is immutable once parsed, except for Node role assignment which the
// importer performs from the Humanoid declarations.
type Model struct {
	Name       string
	Nodes      []*Node // flat list in document order
	Root       *Node
	MeshGroups []*MeshGroup
	Materials  []*Material
	Humanoid   []BoneDeclaration
	Meta       *Meta // raw VRM metadata, retained for future import phases
}

// BoneDeclaration binds a humanoid role to a node by flat-list index.
type BoneDeclaration struct {
	Role      BoneRole
	NodeIndex int
}

// Node is one element of the model's transform tree. A node owns its
// children; the MeshGroup reference is shared.
type Node struct {
	Name        string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Children    []*Node
	MeshGroup   *MeshGroup
	Role        BoneRole
}

// MeshGroup bundles the mesh variants of one source mesh with its skin.
type MeshGroup struct {
	Name   string
	Meshes []*Mesh
	Skin   *Skin
}

// Mesh holds the vertex data and submesh partition of one mesh variant.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Joints    [][4]uint16
	Weights   [][4]float32
	Submeshes []Submesh
	// MorphTargets lists blend-shape names. A non-empty list forces a
	// skinned renderer even when no Skin is present.
	MorphTargets []string
}

// Submesh references one material by positional index.
type Submesh struct {
	Indices       []uint32
	MaterialIndex int
}

// Skin binds a mesh to an ordered list of joint nodes. Both the joints
// and the optional root are non-owning references into Model.Nodes.
type Skin struct {
	Joints []*Node
	Root   *Node
}

// Material carries the texture references and pack factors of one
// source material. Shader parameter mapping is out of scope; only the
// texture slots needed by the texture subsystem are retained.
type Material struct {
	Name              string
	BaseColor         *TextureSource
	Normal            *TextureSource
	MetallicRoughness *TextureSource
	Occlusion         *TextureSource
	MetallicFactor    float32
	RoughnessFactor   float32
}

// TextureSource identifies one source texture image and how to sample it.
type TextureSource struct {
	Name    string
	Fetch   ByteProvider
	Sampler SamplerParams
}

// WrapAxis selects which texture axes a wrap entry applies to.
type WrapAxis int

// Wrap axes. A sampler uses either a single All entry or independent
// per-axis entries, never both.
const (
	WrapAxisAll WrapAxis = iota
	WrapAxisU
	WrapAxisV
	WrapAxisW
)

// WrapMode is the source-level (glTF) wrap mode.
type WrapMode int

// Source wrap modes.
const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// FilterMode is the source-level (glTF) minification filter.
type FilterMode int

// Source filter modes. FilterUndefined means the sampler declared none.
const (
	FilterUndefined FilterMode = iota
	FilterNearest
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

// WrapEntry pairs a wrap mode with the axes it applies to.
type WrapEntry struct {
	Axis WrapAxis
	Mode WrapMode
}

// SamplerParams are the source sampler settings of a texture request.
type SamplerParams struct {
	Wraps  []WrapEntry
	Filter FilterMode
}

// DefaultSampler is used when the source declares no sampler.
func DefaultSampler() SamplerParams {
	return SamplerParams{
		Wraps:  []WrapEntry{{Axis: WrapAxisAll, Mode: WrapRepeat}},
		Filter: FilterUndefined,
	}
}
