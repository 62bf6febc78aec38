// Package runtime declares the narrow scene-graph API the importer
// drives. Engine implementations (in-memory, OpenGL) create transforms,
// textures, meshes, renderers and avatars; the importer never reaches
// past these interfaces into engine internals.
package runtime

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Wrap is an engine-level texture wrap mode.
type Wrap int

// Engine wrap modes.
const (
	WrapModeRepeat Wrap = iota
	WrapModeClamp
	WrapModeMirror
)

// Filter is an engine-level texture filter mode.
type Filter int

// Engine filter modes.
const (
	FilterPoint Filter = iota
	FilterBilinear
	FilterTrilinear
)

// SamplerSettings are the resolved sampler parameters applied to a
// created texture.
type SamplerSettings struct {
	WrapU, WrapV, WrapW Wrap
	Filter              Filter
}

// TextureOptions describe a texture to create.
type TextureOptions struct {
	Name string
	// Linear marks texel data that must not be sRGB-interpreted
	// (normal maps, packed metallic/roughness data).
	Linear  bool
	Sampler SamplerSettings
}

// MeshData is the geometry handed to CreateMesh. Submeshes partition
// the index data; material assignment stays positional.
type MeshData struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Joints    [][4]uint16
	Weights   [][4]float32
	Submeshes []SubmeshData
	// MorphTargets lists blend-shape names registered on the mesh.
	MorphTargets []string
}

// SubmeshData is one index range of a mesh bound to one material slot.
type SubmeshData struct {
	Indices       []uint32
	MaterialIndex int
}

// MaterialDescription carries the resolved texture handles of one
// material. Shader parameters are a host concern.
type MaterialDescription struct {
	Name      string
	BaseColor Texture
	Normal    Texture
	Standard  Texture // packed occlusion/metallic/roughness
}

// BoneBinding maps a humanoid role name onto a transform. Role is ""
// for transforms without a role.
type BoneBinding struct {
	Role      string
	Transform Transform
}

// Transform is one node of the host scene graph.
type Transform interface {
	Name() string
	SetLocalPosition(mgl32.Vec3)
	LocalPosition() mgl32.Vec3
	SetLocalRotation(mgl32.Quat)
	LocalRotation() mgl32.Quat
	// SetParent reparents the transform. With keepWorld the local pose
	// is recomputed so the world pose is unchanged.
	SetParent(parent Transform, keepWorld bool)
	Parent() Transform
	Children() []Transform
	WorldPosition() mgl32.Vec3
	WorldRotation() mgl32.Quat
}

// Texture is an opaque handle to a created texture resource.
type Texture interface {
	Name() string
}

// Mesh is an opaque handle to a created mesh resource.
type Mesh interface {
	Name() string
}

// Material is an opaque handle to a created material asset.
type Material interface {
	Name() string
}

// Renderer is a created renderer component.
type Renderer interface {
	Transform() Transform
	Materials() []Material
	Skinned() bool
}

// Avatar is an opaque handle to a humanoid avatar description.
type Avatar interface {
	Name() string
}

// Animator is an opaque handle to an animation driver.
type Animator interface {
	Avatar() Avatar
}

// Engine is the scene API the importer consumes.
type Engine interface {
	CreateTransform(name string) Transform
	CreateTexture(img *image.NRGBA, opts TextureOptions) (Texture, error)
	DestroyTexture(t Texture)
	CreateMaterial(desc MaterialDescription) (Material, error)
	CreateMesh(data MeshData) (Mesh, error)
	CreateMeshRenderer(t Transform, m Mesh, materials []Material) (Renderer, error)
	CreateSkinnedRenderer(t Transform, m Mesh, materials []Material, joints []Transform, root Transform) (Renderer, error)
	CreateAvatar(name string, bindings []BoneBinding) (Avatar, error)
	CreateAnimator(t Transform, a Avatar) (Animator, error)
	// AttachMarker tags a transform with a named marker component.
	AttachMarker(t Transform, name string)
}
