// Package importer builds engine scene graphs from parsed VRM model
// descriptions. The import runs as one logical task through a fixed
// phase sequence, yielding to a caller-provided awaiter between phases
// and work items so a host frame loop can interleave other work.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// Awaiter is the cooperative suspension point of the import task. A
// host ties it to its frame loop; non-interactive callers use
// Immediate. Cancelling the context stops the import from resuming.
type Awaiter interface {
	NextFrame(ctx context.Context) error
}

type immediateAwaiter struct{}

func (immediateAwaiter) NextFrame(ctx context.Context) error { return ctx.Err() }

// Immediate returns an awaiter that never suspends, for synchronous
// imports.
func Immediate() Awaiter { return immediateAwaiter{} }

// FrameTicker suspends the import until the host pumps the next frame.
type FrameTicker struct {
	c chan struct{}
}

// NewFrameTicker creates an unpumped ticker.
func NewFrameTicker() *FrameTicker {
	return &FrameTicker{c: make(chan struct{})}
}

// Tick releases the import for one more step. Ticks arriving while the
// import is still working are dropped, not queued.
func (f *FrameTicker) Tick() {
	select {
	case f.c <- struct{}{}:
	default:
	}
}

func (f *FrameTicker) NextFrame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.c:
		return nil
	}
}

// State is the orchestrator's position in the phase sequence.
type State int

// Import states, in strict order. No phase is skipped or reordered.
const (
	StateCreated State = iota
	StateMaterialsLoaded
	StateMeshesBuilt
	StateHierarchyBuilt
	StateRenderersAttached
	StatePostProcessed
)

var stateNames = [...]string{
	"created",
	"materials-loaded",
	"meshes-built",
	"hierarchy-built",
	"renderers-attached",
	"post-processed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// PostImportHook runs against the completed asset before Load returns.
// Hooks are the extension point for model blocks without an import
// phase of their own (expressions, look-at, spring bones); a hook error
// aborts the import.
type PostImportHook func(ctx context.Context, asset *ModelAsset) error

// Options tune one import run.
type Options struct {
	// Root, when set, receives the imported hierarchy instead of a
	// freshly created root transform.
	Root runtime.Transform
	// External maps texture identity keys to host-supplied textures.
	External map[string]runtime.Texture
	// Awaiter defaults to Immediate().
	Awaiter Awaiter
	// PostImportHooks run in order after the last phase.
	PostImportHooks []PostImportHook
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Importer drives one import of one model. Create with New, run Load
// once; the instance is not reusable.
type Importer struct {
	eng       runtime.Engine
	model     *vrm.Model
	materials MaterialImporter
	awaiter   Awaiter
	hooks     []PostImportHook
	log       *zap.Logger
	root      runtime.Transform
	textures  *TextureCache
	state     State
}

// New prepares an import of model into eng. materials may be nil when
// the model has no materials to resolve.
func New(eng runtime.Engine, model *vrm.Model, materials MaterialImporter, opts Options) *Importer {
	if opts.Awaiter == nil {
		opts.Awaiter = Immediate()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Importer{
		eng:       eng,
		model:     model,
		materials: materials,
		awaiter:   opts.Awaiter,
		hooks:     opts.PostImportHooks,
		log:       opts.Logger,
		root:      opts.Root,
		textures:  NewTextureCache(eng, opts.External, opts.Logger),
	}
}

// State reports the current import state.
func (im *Importer) State() State { return im.state }

// Textures exposes the texture cache, for ownership transfer and
// disposal once the host is done with the asset.
func (im *Importer) Textures() *TextureCache { return im.textures }

// Load runs the full phase sequence. A fatal error in any phase aborts
// the import; there is no partial-result recovery, and cleanup of
// already-created engine objects is the host's responsibility.
func (im *Importer) Load(ctx context.Context) (*ModelAsset, error) {
	if im.state != StateCreated {
		return nil, fmt.Errorf("import already ran (state %s)", im.state)
	}

	asset := &ModelAsset{Map: NewModelMap()}

	// Phase 1: materials.
	var materials []runtime.Material
	if im.materials != nil {
		var err error
		materials, err = im.materials.Import(ctx, im.textures)
		if err != nil {
			return nil, fmt.Errorf("materials: %w", err)
		}
	}
	im.state = StateMaterialsLoaded
	im.log.Debug("materials loaded", zap.Int("count", len(materials)))
	if err := im.awaiter.NextFrame(ctx); err != nil {
		return nil, err
	}

	// Phase 2: meshes, one yield per mesh group.
	for i, mg := range im.model.MeshGroups {
		mesh, err := BuildMesh(im.eng, mg)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		asset.Map.addMesh(mg, mesh)
		if err := im.awaiter.NextFrame(ctx); err != nil {
			return nil, err
		}
	}
	im.state = StateMeshesBuilt
	im.log.Debug("meshes built", zap.Int("count", len(im.model.MeshGroups)))

	// Phase 3: hierarchy, with root substitution when the host
	// supplied a target root.
	created, nodeMap := BuildHierarchy(im.eng, im.model.Root)
	asset.Root = SubstituteRoot(created, im.root, im.model.Root, nodeMap)
	asset.Map.setNodes(nodeMap)
	im.state = StateHierarchyBuilt
	im.log.Debug("hierarchy built", zap.Int("nodes", len(nodeMap)))
	if err := im.awaiter.NextFrame(ctx); err != nil {
		return nil, err
	}

	// Phase 4: renderers, one yield per renderer. Nodes outside the
	// scene hierarchy received no transform and get no renderer.
	for _, node := range im.model.Nodes {
		if node.MeshGroup == nil {
			continue
		}
		t, ok := nodeMap[node]
		if !ok {
			im.log.Debug("skipping renderer for node outside hierarchy", zap.String("node", node.Name))
			continue
		}
		mesh := asset.Map.Meshes[node.MeshGroup]
		r, err := BuildRenderer(im.eng, node, t, mesh, materials, nodeMap)
		if err != nil {
			return nil, err
		}
		asset.Renderers = append(asset.Renderers, r)
		if err := im.awaiter.NextFrame(ctx); err != nil {
			return nil, err
		}
	}
	im.state = StateRenderersAttached
	im.log.Debug("renderers attached", zap.Int("count", len(asset.Renderers)))

	// Phase 5: humanoid avatar, animation driver, instance marker.
	AssignBoneRoles(im.model)
	avatar, err := BuildAvatar(im.eng, im.model, nodeMap)
	if err != nil {
		return nil, err
	}
	asset.Avatar = avatar
	animator, err := im.eng.CreateAnimator(asset.Root, avatar)
	if err != nil {
		return nil, fmt.Errorf("animator: %w", err)
	}
	asset.Animator = animator
	im.eng.AttachMarker(asset.Root, "VRMInstance")
	im.state = StatePostProcessed
	for i, hook := range im.hooks {
		if err := hook(ctx, asset); err != nil {
			return nil, fmt.Errorf("post-import hook %d: %w", i, err)
		}
	}
	if err := im.awaiter.NextFrame(ctx); err != nil {
		return nil, err
	}

	hits, misses := im.textures.Stats()
	im.log.Info("import complete",
		zap.String("model", im.model.Name),
		zap.Int("nodes", len(nodeMap)),
		zap.Int("meshes", len(im.model.MeshGroups)),
		zap.Int("renderers", len(asset.Renderers)),
		zap.Int("textureHits", hits),
		zap.Int("textureMisses", misses),
	)
	return asset, nil
}
