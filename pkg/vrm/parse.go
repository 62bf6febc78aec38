package vrm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ParseFile reads a .vrm/.glb/.gltf file and builds the model description.
func ParseFile(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	m, err := FromDocument(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", path)
	}
	return m, nil
}

// Parse reads a binary glTF container with embedded buffers.
func Parse(r io.Reader) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decode container")
	}
	return FromDocument(doc)
}

// FromDocument converts a decoded glTF document into the model
// description. Node indices in the returned Model match the document's
// node indices, which the humanoid declarations rely on.
func FromDocument(doc *gltf.Document) (*Model, error) {
	m := &Model{Name: documentName(doc)}

	ext := extensionOf(doc)
	if ext != nil {
		m.Meta = ext.Meta
	}

	for i, gm := range doc.Meshes {
		mg, err := buildMeshGroup(doc, gm, i)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		m.MeshGroups = append(m.MeshGroups, mg)
	}

	for i, gmat := range doc.Materials {
		mat, err := buildMaterial(doc, gmat, i)
		if err != nil {
			return nil, errors.Wrapf(err, "material %d", i)
		}
		m.Materials = append(m.Materials, mat)
	}

	// Two passes over the nodes: the child edges reference forward.
	m.Nodes = make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		m.Nodes[i] = &Node{
			Name:        name,
			Translation: mgl32.Vec3(gn.Translation),
			Rotation: mgl32.Quat{
				W: gn.Rotation[3],
				V: mgl32.Vec3{gn.Rotation[0], gn.Rotation[1], gn.Rotation[2]},
			},
		}
	}
	for i, gn := range doc.Nodes {
		node := m.Nodes[i]
		for _, c := range gn.Children {
			if int(c) >= len(m.Nodes) {
				return nil, errors.Errorf("node %d: child index %d out of range", i, c)
			}
			node.Children = append(node.Children, m.Nodes[c])
		}
		if gn.Mesh != nil {
			if int(*gn.Mesh) >= len(m.MeshGroups) {
				return nil, errors.Errorf("node %d: mesh index %d out of range", i, *gn.Mesh)
			}
			node.MeshGroup = m.MeshGroups[*gn.Mesh]
			if gn.Skin != nil {
				if int(*gn.Skin) >= len(doc.Skins) {
					return nil, errors.Errorf("node %d: skin index %d out of range", i, *gn.Skin)
				}
				skin, err := buildSkin(m.Nodes, doc.Skins[*gn.Skin])
				if err != nil {
					return nil, errors.Wrapf(err, "node %d", i)
				}
				node.MeshGroup.Skin = skin
			}
		}
	}

	// The imported hierarchy hangs under one synthetic root so the host
	// receives a single output transform even for multi-root scenes.
	m.Root = &Node{Name: m.Name, Rotation: mgl32.QuatIdent()}
	for _, r := range sceneRoots(doc) {
		if int(r) < len(m.Nodes) {
			m.Root.Children = append(m.Root.Children, m.Nodes[r])
		}
	}

	if ext != nil && ext.Humanoid != nil {
		for _, hb := range ext.Humanoid.Bones {
			role := ParseBoneRole(hb.Bone)
			if role == RoleUnknown {
				continue
			}
			m.Humanoid = append(m.Humanoid, BoneDeclaration{Role: role, NodeIndex: hb.Node})
		}
	}

	return m, nil
}

func documentName(doc *gltf.Document) string {
	if ext := extensionOf(doc); ext != nil && ext.Meta != nil && ext.Meta.Title != "" {
		return ext.Meta.Title
	}
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) && doc.Scenes[*doc.Scene].Name != "" {
		return doc.Scenes[*doc.Scene].Name
	}
	return "VRM"
}

func sceneRoots(doc *gltf.Document) []uint32 {
	idx := 0
	if doc.Scene != nil {
		idx = int(*doc.Scene)
	}
	if idx >= len(doc.Scenes) {
		return nil
	}
	return doc.Scenes[idx].Nodes
}

// buildMeshGroup converts one glTF mesh. Primitives that share a
// position accessor share one vertex buffer and become submeshes of a
// single mesh variant; a second position accessor opens a second
// variant, which the importer rejects as unsupported.
func buildMeshGroup(doc *gltf.Document, gm *gltf.Mesh, index int) (*MeshGroup, error) {
	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", index)
	}
	mg := &MeshGroup{Name: name}

	variantByPos := map[uint32]*Mesh{}
	for pi, prim := range gm.Primitives {
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			return nil, errors.Errorf("primitive %d: no position attribute", pi)
		}
		mesh := variantByPos[posIdx]
		if mesh == nil {
			var err error
			mesh, err = readVertexData(doc, prim)
			if err != nil {
				return nil, errors.Wrapf(err, "primitive %d", pi)
			}
			mesh.MorphTargets = targetNames(gm, len(prim.Targets))
			variantByPos[posIdx] = mesh
			mg.Meshes = append(mg.Meshes, mesh)
		}

		sub := Submesh{}
		if prim.Material != nil {
			sub.MaterialIndex = int(*prim.Material)
		}
		if prim.Indices != nil {
			if int(*prim.Indices) >= len(doc.Accessors) {
				return nil, errors.Errorf("primitive %d: index accessor out of range", pi)
			}
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "primitive %d: indices", pi)
			}
			sub.Indices = indices
		} else {
			sub.Indices = make([]uint32, len(mesh.Positions))
			for i := range sub.Indices {
				sub.Indices[i] = uint32(i)
			}
		}
		mesh.Submeshes = append(mesh.Submeshes, sub)
	}

	return mg, nil
}

func readVertexData(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, error) {
	mesh := new(Mesh)

	pos, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes[gltf.POSITION]], nil)
	if err != nil {
		return nil, errors.Wrap(err, "positions")
	}
	mesh.Positions = pos

	if acc, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[acc], nil)
		if err != nil {
			return nil, errors.Wrap(err, "normals")
		}
		mesh.Normals = normals
	}
	if acc, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[acc], nil)
		if err != nil {
			return nil, errors.Wrap(err, "texture coords")
		}
		mesh.UVs = uvs
	}
	if acc, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		joints, err := modeler.ReadJoints(doc, doc.Accessors[acc], nil)
		if err != nil {
			return nil, errors.Wrap(err, "joints")
		}
		mesh.Joints = joints
	}
	if acc, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
		weights, err := modeler.ReadWeights(doc, doc.Accessors[acc], nil)
		if err != nil {
			return nil, errors.Wrap(err, "weights")
		}
		mesh.Weights = weights
	}

	return mesh, nil
}

// targetNames reads blend-shape names from the mesh extras, falling back
// to generated names when the exporter did not record any.
func targetNames(gm *gltf.Mesh, count int) []string {
	if count == 0 {
		return nil
	}
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("morph_%d", i)
	}

	var extras map[string]interface{}
	switch e := gm.Extras.(type) {
	case map[string]interface{}:
		extras = e
	case json.RawMessage:
		_ = json.Unmarshal(e, &extras)
	}
	if raw, ok := extras["targetNames"].([]interface{}); ok {
		for i, n := range raw {
			if i >= count {
				break
			}
			if s, ok := n.(string); ok {
				names[i] = s
			}
		}
	}
	return names
}

func buildSkin(nodes []*Node, gs *gltf.Skin) (*Skin, error) {
	skin := new(Skin)
	for _, j := range gs.Joints {
		if int(j) >= len(nodes) {
			return nil, errors.Errorf("skin joint index %d out of range", j)
		}
		skin.Joints = append(skin.Joints, nodes[j])
	}
	if gs.Skeleton != nil {
		if int(*gs.Skeleton) >= len(nodes) {
			return nil, errors.Errorf("skin skeleton index %d out of range", *gs.Skeleton)
		}
		skin.Root = nodes[*gs.Skeleton]
	}
	return skin, nil
}

func buildMaterial(doc *gltf.Document, gmat *gltf.Material, index int) (*Material, error) {
	name := gmat.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", index)
	}
	mat := &Material{Name: name, MetallicFactor: 1, RoughnessFactor: 1}

	if pbr := gmat.PBRMetallicRoughness; pbr != nil {
		if pbr.MetallicFactor != nil {
			mat.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.RoughnessFactor = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			src, err := textureSource(doc, int(pbr.BaseColorTexture.Index))
			if err != nil {
				return nil, errors.Wrap(err, "base color")
			}
			mat.BaseColor = src
		}
		if pbr.MetallicRoughnessTexture != nil {
			src, err := textureSource(doc, int(pbr.MetallicRoughnessTexture.Index))
			if err != nil {
				return nil, errors.Wrap(err, "metallic roughness")
			}
			mat.MetallicRoughness = src
		}
	}
	if gmat.NormalTexture != nil && gmat.NormalTexture.Index != nil {
		src, err := textureSource(doc, int(*gmat.NormalTexture.Index))
		if err != nil {
			return nil, errors.Wrap(err, "normal")
		}
		mat.Normal = src
	}
	if gmat.OcclusionTexture != nil && gmat.OcclusionTexture.Index != nil {
		src, err := textureSource(doc, int(*gmat.OcclusionTexture.Index))
		if err != nil {
			return nil, errors.Wrap(err, "occlusion")
		}
		mat.Occlusion = src
	}

	return mat, nil
}

func textureSource(doc *gltf.Document, texIdx int) (*TextureSource, error) {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil, errors.Errorf("texture index %d out of range", texIdx)
	}
	tex := doc.Textures[texIdx]
	if tex.Source == nil || int(*tex.Source) >= len(doc.Images) {
		return nil, errors.Errorf("texture %d: image index out of range", texIdx)
	}
	img := doc.Images[*tex.Source]

	src := &TextureSource{
		Name:    textureName(tex, img, texIdx),
		Fetch:   imageBytes(doc, img),
		Sampler: DefaultSampler(),
	}
	if tex.Sampler != nil {
		if int(*tex.Sampler) >= len(doc.Samplers) {
			return nil, errors.Errorf("texture %d: sampler index out of range", texIdx)
		}
		src.Sampler = samplerParams(doc.Samplers[*tex.Sampler])
	}
	return src, nil
}

func textureName(tex *gltf.Texture, img *gltf.Image, index int) string {
	if tex.Name != "" {
		return tex.Name
	}
	if img.Name != "" {
		return img.Name
	}
	return fmt.Sprintf("texture_%d", index)
}

// imageBytes returns a provider for the encoded bytes of an image,
// backed by its buffer view or an embedded data URI.
func imageBytes(doc *gltf.Document, img *gltf.Image) ByteProvider {
	return func(context.Context) ([]byte, error) {
		if img.BufferView != nil {
			if int(*img.BufferView) >= len(doc.BufferViews) {
				return nil, errors.Errorf("image buffer view %d out of range", *img.BufferView)
			}
			return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		}
		if strings.HasPrefix(img.URI, "data:") {
			comma := strings.IndexByte(img.URI, ',')
			if comma < 0 {
				return nil, errors.New("malformed image data URI")
			}
			return base64.StdEncoding.DecodeString(img.URI[comma+1:])
		}
		if img.URI != "" {
			return nil, errors.Errorf("external image file %q not supported", img.URI)
		}
		return nil, nil
	}
}

func samplerParams(gs *gltf.Sampler) SamplerParams {
	p := SamplerParams{Filter: filterMode(gs.MinFilter)}
	u, v := wrapMode(gs.WrapS), wrapMode(gs.WrapT)
	if u == v {
		p.Wraps = []WrapEntry{{Axis: WrapAxisAll, Mode: u}}
	} else {
		p.Wraps = []WrapEntry{
			{Axis: WrapAxisU, Mode: u},
			{Axis: WrapAxisV, Mode: v},
		}
	}
	return p
}

func wrapMode(w gltf.WrappingMode) WrapMode {
	switch w {
	case gltf.WrapRepeat:
		return WrapRepeat
	case gltf.WrapClampToEdge:
		return WrapClampToEdge
	case gltf.WrapMirroredRepeat:
		return WrapMirroredRepeat
	default:
		// Preserved out of range so the importer rejects it.
		return WrapMode(-1)
	}
}

func filterMode(f gltf.MinFilter) FilterMode {
	switch f {
	case gltf.MinUndefined:
		return FilterUndefined
	case gltf.MinNearest:
		return FilterNearest
	case gltf.MinLinear:
		return FilterLinear
	case gltf.MinNearestMipMapNearest:
		return FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		return FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		return FilterNearestMipmapLinear
	case gltf.MinLinearMipMapLinear:
		return FilterLinearMipmapLinear
	default:
		return FilterMode(-1)
	}
}
