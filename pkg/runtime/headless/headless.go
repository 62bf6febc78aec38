// Package headless is an in-memory implementation of the runtime scene
// API. It backs the importer tests and the non-interactive CLI, and it
// records enough bookkeeping (destroy counts, creation order) for tests
// to assert resource-lifetime contracts.
package headless

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/azwjp/UniVRM/pkg/runtime"
)

// Engine is an in-memory scene. The zero value is not usable; call New.
type Engine struct {
	Transforms []*Transform
	Textures   []*Texture
	Meshes     []*Mesh
	Materials  []*Material
	Renderers  []*Renderer
	Avatars    []*Avatar
	Markers    map[runtime.Transform][]string
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{Markers: map[runtime.Transform][]string{}}
}

// Transform is an in-memory scene node.
type Transform struct {
	name     string
	parent   *Transform
	children []*Transform
	localPos mgl32.Vec3
	localRot mgl32.Quat
}

func (t *Transform) Name() string                  { return t.name }
func (t *Transform) SetLocalPosition(p mgl32.Vec3) { t.localPos = p }
func (t *Transform) LocalPosition() mgl32.Vec3     { return t.localPos }
func (t *Transform) SetLocalRotation(r mgl32.Quat) { t.localRot = r }
func (t *Transform) LocalRotation() mgl32.Quat     { return t.localRot }

func (t *Transform) Parent() runtime.Transform {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *Transform) Children() []runtime.Transform {
	out := make([]runtime.Transform, len(t.children))
	for i, c := range t.children {
		out[i] = c
	}
	return out
}

func (t *Transform) WorldPosition() mgl32.Vec3 {
	if t.parent == nil {
		return t.localPos
	}
	return t.parent.WorldPosition().Add(t.parent.WorldRotation().Rotate(t.localPos))
}

func (t *Transform) WorldRotation() mgl32.Quat {
	if t.parent == nil {
		return t.localRot
	}
	return t.parent.WorldRotation().Mul(t.localRot)
}

func (t *Transform) SetParent(parent runtime.Transform, keepWorld bool) {
	var p *Transform
	if parent != nil {
		p = parent.(*Transform)
	}

	wp, wr := t.WorldPosition(), t.WorldRotation()

	if t.parent != nil {
		siblings := t.parent.children
		for i, c := range siblings {
			if c == t {
				t.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	t.parent = p
	if p != nil {
		p.children = append(p.children, t)
	}

	if keepWorld {
		if p == nil {
			t.localPos, t.localRot = wp, wr
		} else {
			inv := p.WorldRotation().Inverse()
			t.localPos = inv.Rotate(wp.Sub(p.WorldPosition()))
			t.localRot = inv.Mul(wr)
		}
	}
}

// Texture is an in-memory texture resource. DestroyCount lets tests
// assert each sub-asset is destroyed exactly once.
type Texture struct {
	TexName      string
	Image        *image.NRGBA
	Linear       bool
	Sampler      runtime.SamplerSettings
	DestroyCount int
}

func (t *Texture) Name() string { return t.TexName }

// Mesh is an in-memory mesh resource.
type Mesh struct {
	Data runtime.MeshData
}

func (m *Mesh) Name() string { return m.Data.Name }

// Material is an in-memory material asset.
type Material struct {
	Desc runtime.MaterialDescription
}

func (m *Material) Name() string { return m.Desc.Name }

// Renderer is an in-memory renderer component.
type Renderer struct {
	Node      runtime.Transform
	Mesh      runtime.Mesh
	Mats      []runtime.Material
	Joints    []runtime.Transform
	RootBone  runtime.Transform
	IsSkinned bool
}

func (r *Renderer) Transform() runtime.Transform  { return r.Node }
func (r *Renderer) Materials() []runtime.Material { return r.Mats }
func (r *Renderer) Skinned() bool                 { return r.IsSkinned }

// Avatar is an in-memory humanoid avatar description.
type Avatar struct {
	AvatarName string
	Bindings   []runtime.BoneBinding
}

func (a *Avatar) Name() string { return a.AvatarName }

// Animator is an in-memory animation driver.
type Animator struct {
	Node   runtime.Transform
	Target runtime.Avatar
}

func (a *Animator) Avatar() runtime.Avatar { return a.Target }

func (e *Engine) CreateTransform(name string) runtime.Transform {
	t := &Transform{name: name, localRot: mgl32.QuatIdent()}
	e.Transforms = append(e.Transforms, t)
	return t
}

func (e *Engine) CreateTexture(img *image.NRGBA, opts runtime.TextureOptions) (runtime.Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("texture %q: nil image", opts.Name)
	}
	t := &Texture{TexName: opts.Name, Image: img, Linear: opts.Linear, Sampler: opts.Sampler}
	e.Textures = append(e.Textures, t)
	return t, nil
}

func (e *Engine) DestroyTexture(t runtime.Texture) {
	t.(*Texture).DestroyCount++
}

func (e *Engine) CreateMaterial(desc runtime.MaterialDescription) (runtime.Material, error) {
	m := &Material{Desc: desc}
	e.Materials = append(e.Materials, m)
	return m, nil
}

func (e *Engine) CreateMesh(data runtime.MeshData) (runtime.Mesh, error) {
	if len(data.Positions) == 0 {
		return nil, fmt.Errorf("mesh %q: no vertices", data.Name)
	}
	m := &Mesh{Data: data}
	e.Meshes = append(e.Meshes, m)
	return m, nil
}

func (e *Engine) CreateMeshRenderer(t runtime.Transform, m runtime.Mesh, materials []runtime.Material) (runtime.Renderer, error) {
	r := &Renderer{Node: t, Mesh: m, Mats: materials}
	e.Renderers = append(e.Renderers, r)
	return r, nil
}

func (e *Engine) CreateSkinnedRenderer(t runtime.Transform, m runtime.Mesh, materials []runtime.Material, joints []runtime.Transform, root runtime.Transform) (runtime.Renderer, error) {
	r := &Renderer{Node: t, Mesh: m, Mats: materials, Joints: joints, RootBone: root, IsSkinned: true}
	e.Renderers = append(e.Renderers, r)
	return r, nil
}

// CreateAvatar validates the one bone every humanoid needs. The full
// required-bone check belongs to the host avatar system.
func (e *Engine) CreateAvatar(name string, bindings []runtime.BoneBinding) (runtime.Avatar, error) {
	hasHips := false
	for _, b := range bindings {
		if b.Role == "hips" {
			hasHips = true
			break
		}
	}
	if !hasHips {
		return nil, fmt.Errorf("avatar %q: no hips bone bound", name)
	}
	a := &Avatar{AvatarName: name, Bindings: bindings}
	e.Avatars = append(e.Avatars, a)
	return a, nil
}

func (e *Engine) CreateAnimator(t runtime.Transform, a runtime.Avatar) (runtime.Animator, error) {
	return &Animator{Node: t, Target: a}, nil
}

func (e *Engine) AttachMarker(t runtime.Transform, name string) {
	e.Markers[t] = append(e.Markers[t], name)
}
