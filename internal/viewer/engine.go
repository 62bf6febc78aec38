package viewer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/runtime/headless"
)

// Engine is the OpenGL-backed runtime engine. The transform graph and
// avatar bookkeeping are delegated to the in-memory engine; textures,
// meshes and renderers own GPU resources.
type Engine struct {
	scene *headless.Engine
	log   *zap.Logger

	renderers []*Renderer
}

// NewEngine creates an engine bound to the current GL context.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{scene: headless.New(), log: log}
}

// Renderers returns the drawable components in creation order.
func (e *Engine) Renderers() []*Renderer { return e.renderers }

func (e *Engine) CreateTransform(name string) runtime.Transform {
	return e.scene.CreateTransform(name)
}

func (e *Engine) CreateAvatar(name string, bindings []runtime.BoneBinding) (runtime.Avatar, error) {
	return e.scene.CreateAvatar(name, bindings)
}

func (e *Engine) CreateAnimator(t runtime.Transform, a runtime.Avatar) (runtime.Animator, error) {
	return e.scene.CreateAnimator(t, a)
}

func (e *Engine) AttachMarker(t runtime.Transform, name string) {
	e.scene.AttachMarker(t, name)
}

func (e *Engine) CreateMaterial(desc runtime.MaterialDescription) (runtime.Material, error) {
	return &Material{Desc: desc}, nil
}

// Material pairs the resolved texture handles with the material name.
type Material struct {
	Desc runtime.MaterialDescription
}

func (m *Material) Name() string { return m.Desc.Name }

// Texture is a GPU texture resource.
type Texture struct {
	TexName string
	ID      uint32
}

func (t *Texture) Name() string { return t.TexName }

func (e *Engine) CreateTexture(img *image.NRGBA, opts runtime.TextureOptions) (runtime.Texture, error) {
	if img == nil || len(img.Pix) == 0 {
		return nil, fmt.Errorf("texture %q: no texel data", opts.Name)
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	// Color data is stored sRGB so the hardware linearizes on sample.
	// Converted maps carry linear data and must not be re-linearized.
	internalFormat := int32(gl.SRGB8_ALPHA8)
	if opts.Linear {
		internalFormat = gl.RGBA8
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(w), int32(h), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(opts.Sampler.WrapU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(opts.Sampler.WrapV))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_R, glWrap(opts.Sampler.WrapW))

	switch opts.Sampler.Filter {
	case runtime.FilterPoint:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	case runtime.FilterTrilinear:
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	default:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}

	e.log.Debug("texture uploaded",
		zap.String("name", opts.Name),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Bool("linear", opts.Linear),
	)
	return &Texture{TexName: opts.Name, ID: id}, nil
}

func (e *Engine) DestroyTexture(t runtime.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex.ID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.ID)
	tex.ID = 0
}

func glWrap(w runtime.Wrap) int32 {
	switch w {
	case runtime.WrapModeClamp:
		return gl.CLAMP_TO_EDGE
	case runtime.WrapModeMirror:
		return gl.MIRRORED_REPEAT
	default:
		return gl.REPEAT
	}
}

// submeshRange is one draw range of the shared element buffer.
type submeshRange struct {
	startIndex    int
	indexCount    int32
	materialIndex int
}

// Mesh is geometry uploaded to the GPU: one interleaved vertex buffer
// (position, normal, texcoord) and one element buffer partitioned into
// submesh ranges.
type Mesh struct {
	MeshName string
	vao      uint32
	vbo      uint32
	ebo      uint32
	ranges   []submeshRange
	skinned  bool
}

func (m *Mesh) Name() string { return m.MeshName }

const vertexStride = 8 * 4 // 3 position + 3 normal + 2 texcoord floats

func (e *Engine) CreateMesh(data runtime.MeshData) (runtime.Mesh, error) {
	if len(data.Positions) == 0 {
		return nil, fmt.Errorf("mesh %q: no vertices", data.Name)
	}

	vertices := make([]float32, 0, len(data.Positions)*8)
	for i, p := range data.Positions {
		vertices = append(vertices, p[0], p[1], p[2])
		if i < len(data.Normals) {
			n := data.Normals[i]
			vertices = append(vertices, n[0], n[1], n[2])
		} else {
			vertices = append(vertices, 0, 1, 0)
		}
		if i < len(data.UVs) {
			uv := data.UVs[i]
			vertices = append(vertices, uv[0], uv[1])
		} else {
			vertices = append(vertices, 0, 0)
		}
	}

	var indices []uint32
	mesh := &Mesh{
		MeshName: data.Name,
		skinned:  len(data.Joints) > 0 || len(data.MorphTargets) > 0,
	}
	for _, sub := range data.Submeshes {
		mesh.ranges = append(mesh.ranges, submeshRange{
			startIndex:    len(indices),
			indexCount:    int32(len(sub.Indices)),
			materialIndex: sub.MaterialIndex,
		})
		indices = append(indices, sub.Indices...)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("mesh %q: no indices", data.Name)
	}

	gl.GenVertexArrays(1, &mesh.vao)
	gl.BindVertexArray(mesh.vao)

	gl.GenBuffers(1, &mesh.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, mesh.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexStride, 3*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertexStride, 6*4)

	gl.GenBuffers(1, &mesh.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, mesh.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)

	e.log.Debug("mesh uploaded",
		zap.String("name", data.Name),
		zap.Int("vertices", len(data.Positions)),
		zap.Int("indices", len(indices)),
		zap.Int("submeshes", len(mesh.ranges)),
	)
	return mesh, nil
}

// Renderer draws one mesh at one transform with positional materials.
type Renderer struct {
	Node      runtime.Transform
	Mesh      *Mesh
	Mats      []runtime.Material
	Joints    []runtime.Transform
	RootBone  runtime.Transform
	IsSkinned bool
}

func (r *Renderer) Transform() runtime.Transform  { return r.Node }
func (r *Renderer) Materials() []runtime.Material { return r.Mats }
func (r *Renderer) Skinned() bool                 { return r.IsSkinned }

func (e *Engine) CreateMeshRenderer(t runtime.Transform, m runtime.Mesh, materials []runtime.Material) (runtime.Renderer, error) {
	mesh, ok := m.(*Mesh)
	if !ok {
		return nil, fmt.Errorf("renderer %q: foreign mesh handle", t.Name())
	}
	r := &Renderer{Node: t, Mesh: mesh, Mats: materials}
	e.renderers = append(e.renderers, r)
	return r, nil
}

func (e *Engine) CreateSkinnedRenderer(t runtime.Transform, m runtime.Mesh, materials []runtime.Material, joints []runtime.Transform, root runtime.Transform) (runtime.Renderer, error) {
	mesh, ok := m.(*Mesh)
	if !ok {
		return nil, fmt.Errorf("renderer %q: foreign mesh handle", t.Name())
	}
	r := &Renderer{Node: t, Mesh: mesh, Mats: materials, Joints: joints, RootBone: root, IsSkinned: true}
	e.renderers = append(e.renderers, r)
	return r, nil
}

// baseColorID resolves the base color texture of a material slot, or 0.
func baseColorID(mats []runtime.Material, idx int) uint32 {
	if idx < 0 || idx >= len(mats) {
		return 0
	}
	mat, ok := mats[idx].(*Material)
	if !ok {
		return 0
	}
	tex, ok := mat.Desc.BaseColor.(*Texture)
	if !ok {
		return 0
	}
	return tex.ID
}
