package importer

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/runtime/headless"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// countingAwaiter records every suspension point the import reaches.
type countingAwaiter struct {
	yields int
	states []State
	im     *Importer
}

func (a *countingAwaiter) NextFrame(ctx context.Context) error {
	a.yields++
	if a.im != nil {
		a.states = append(a.states, a.im.State())
	}
	return ctx.Err()
}

// humanoidFixture is a minimal importable model: a hips bone and one
// skinned-less mesh node under the scene root.
func humanoidFixture(t *testing.T) *vrm.Model {
	t.Helper()
	hips := newNode("Hips")
	body := newNode("Body")
	mg := &vrm.MeshGroup{Name: "Body", Meshes: []*vrm.Mesh{quadMesh(0)}}
	body.MeshGroup = mg
	root := newNode("fixture")
	root.Children = []*vrm.Node{hips, body}

	calls := 0
	return &vrm.Model{
		Name:       "fixture",
		Root:       root,
		Nodes:      []*vrm.Node{hips, body},
		MeshGroups: []*vrm.MeshGroup{mg},
		Materials: []*vrm.Material{{
			Name: "skin",
			BaseColor: &vrm.TextureSource{
				Name:    "skin_base",
				Fetch:   countingProvider(pngBytes(t, 4, 4, color.NRGBA{240, 200, 180, 255}), &calls),
				Sampler: vrm.DefaultSampler(),
			},
			MetallicFactor:  1,
			RoughnessFactor: 1,
		}},
		Humanoid: []vrm.BoneDeclaration{{Role: vrm.RoleHips, NodeIndex: 0}},
	}
}

func TestLoadRunsAllPhases(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	im := New(eng, m, mats, Options{})
	asset, err := im.Load(context.Background())
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if im.State() != StatePostProcessed {
		t.Errorf("expected post-processed, got %s", im.State())
	}
	if asset.Root == nil || asset.Avatar == nil || asset.Animator == nil {
		t.Fatal("asset is missing root, avatar or animator")
	}
	if len(asset.Renderers) != 1 {
		t.Fatalf("expected 1 renderer, got %d", len(asset.Renderers))
	}
	if asset.Avatar.Name() != "fixture" {
		t.Errorf("avatar name: got %q", asset.Avatar.Name())
	}
	if markers := eng.Markers[asset.Root]; len(markers) != 1 || markers[0] != "VRMInstance" {
		t.Errorf("expected VRMInstance marker on the root, got %v", markers)
	}

	// The map must cross-reference both directions.
	body := m.Nodes[1]
	bt := asset.Map.Nodes[body]
	if bt == nil || asset.Map.Transforms[bt] != body {
		t.Error("node map is not bidirectional")
	}
	mesh := asset.Map.Meshes[m.MeshGroups[0]]
	if mesh == nil || asset.Map.MeshGroups[mesh] != m.MeshGroups[0] {
		t.Error("mesh map is not bidirectional")
	}
	if asset.Renderers[0].Transform() != bt {
		t.Error("renderer not attached to the mesh node's transform")
	}
}

func TestLoadYieldOrderIsDeterministic(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	aw := &countingAwaiter{}
	im := New(eng, m, mats, Options{Awaiter: aw})
	aw.im = im

	if _, err := im.Load(context.Background()); err != nil {
		t.Fatalf("loading: %v", err)
	}

	// One yield after materials, one per mesh group, one after the
	// hierarchy, one per renderer, one after post-processing.
	want := 1 + len(m.MeshGroups) + 1 + 1 + 1
	if aw.yields != want {
		t.Fatalf("expected %d yields, got %d", want, aw.yields)
	}

	wantStates := []State{
		StateMaterialsLoaded,
		StateMaterialsLoaded, // per-mesh yield precedes the phase transition
		StateHierarchyBuilt,
		StateHierarchyBuilt, // per-renderer yield precedes the phase transition
		StatePostProcessed,
	}
	for i, s := range wantStates {
		if aw.states[i] != s {
			t.Errorf("yield %d: expected state %s, got %s", i, s, aw.states[i])
		}
	}
}

func TestLoadSubstitutesSuppliedRoot(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	host := eng.CreateTransform("host-root")
	im := New(eng, m, mats, Options{Root: host})
	asset, err := im.Load(context.Background())
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if asset.Root != host {
		t.Fatal("expected the supplied root in the result")
	}
	if len(host.Children()) != 2 {
		t.Errorf("expected 2 children under the supplied root, got %d", len(host.Children()))
	}
	if asset.Map.Nodes[m.Root] != host {
		t.Error("source root must map to the supplied transform")
	}
	if markers := eng.Markers[host]; len(markers) != 1 || markers[0] != "VRMInstance" {
		t.Errorf("marker must land on the supplied root, got %v", markers)
	}
}

func TestLoadSkipsGeometryNodesOutsideHierarchy(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)

	// A node carrying geometry but absent from the scene tree is valid
	// input; it must not produce a renderer.
	orphan := newNode("Orphan")
	orphan.MeshGroup = &vrm.MeshGroup{Name: "Orphan", Meshes: []*vrm.Mesh{quadMesh(0)}}
	m.Nodes = append(m.Nodes, orphan)
	m.MeshGroups = append(m.MeshGroups, orphan.MeshGroup)

	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}
	im := New(eng, m, mats, Options{})
	asset, err := im.Load(context.Background())
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if len(asset.Renderers) != 1 {
		t.Fatalf("expected 1 renderer, got %d", len(asset.Renderers))
	}
	if asset.Renderers[0].Transform() == nil {
		t.Fatal("renderer bound to a nil transform")
	}
	if _, ok := asset.Map.Nodes[orphan]; ok {
		t.Error("orphan node must not appear in the node map")
	}
}

func TestPostImportHooksRunAfterLastPhase(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	var im *Importer
	var order []string
	var seen State
	im = New(eng, m, mats, Options{PostImportHooks: []PostImportHook{
		func(ctx context.Context, asset *ModelAsset) error {
			order = append(order, "first")
			seen = im.State()
			if asset.Root == nil || asset.Avatar == nil {
				t.Error("hook received an incomplete asset")
			}
			return nil
		},
		func(ctx context.Context, asset *ModelAsset) error {
			order = append(order, "second")
			return nil
		},
	}})

	if _, err := im.Load(context.Background()); err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected hooks in registration order, got %v", order)
	}
	if seen != StatePostProcessed {
		t.Errorf("expected hooks to run post-processed, got %s", seen)
	}
}

func TestPostImportHookErrorAbortsLoad(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	boom := errors.New("boom")
	im := New(eng, m, mats, Options{PostImportHooks: []PostImportHook{
		func(context.Context, *ModelAsset) error { return boom },
	}})

	_, err := im.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected the hook error, got %v", err)
	}
}

func TestLoadRunsOnlyOnce(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	im := New(eng, m, &TextureMaterialImporter{Engine: eng, Materials: m.Materials}, Options{})

	if _, err := im.Load(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	_, err := im.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already ran") {
		t.Errorf("expected a second Load to be rejected, got %v", err)
	}
}

func TestLoadAbortsOnIsolatedVertexBuffers(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	m.MeshGroups[0].Meshes = append(m.MeshGroups[0].Meshes, quadMesh(0))

	im := New(eng, m, nil, Options{})
	_, err := im.Load(context.Background())
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	// The abort happens mid-phase; no later phase may have run.
	if im.State() != StateMaterialsLoaded {
		t.Errorf("expected state materials-loaded after abort, got %s", im.State())
	}
	if len(eng.Renderers) != 0 || len(eng.Avatars) != 0 {
		t.Error("no renderer or avatar may exist after a mesh-phase abort")
	}
}

func TestLoadStopsOnCancelledContext(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	im := New(eng, m, nil, Options{})
	if _, err := im.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFrameTickerSuspendsUntilTick(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	ticker := NewFrameTicker()
	im := New(eng, m, mats, Options{Awaiter: ticker})

	type result struct {
		asset *ModelAsset
		err   error
	}
	done := make(chan result, 1)
	go func() {
		asset, err := im.Load(context.Background())
		done <- result{asset, err}
	}()

	// Pump frames until the import finishes. Extra ticks against a
	// finished import must be dropped without blocking.
	for {
		select {
		case r := <-done:
			if r.err != nil {
				t.Fatalf("loading: %v", r.err)
			}
			if r.asset.Root == nil {
				t.Fatal("asset has no root")
			}
			ticker.Tick()
			return
		default:
			ticker.Tick()
		}
	}
}

func TestFrameTickerRespectsCancellation(t *testing.T) {
	ticker := NewFrameTicker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ticker.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadTextureOwnershipHandoff(t *testing.T) {
	eng := headless.New()
	m := humanoidFixture(t)
	mats := &TextureMaterialImporter{Engine: eng, Materials: m.Materials}

	im := New(eng, m, mats, Options{})
	if _, err := im.Load(context.Background()); err != nil {
		t.Fatalf("loading: %v", err)
	}

	// The host takes every offered sub-asset; disposal then has
	// nothing left to destroy.
	im.Textures().TransferOwnership(func(runtime.Texture) bool { return true })
	im.Textures().Dispose()
	for _, tex := range eng.Textures {
		if tex.DestroyCount != 0 {
			t.Errorf("texture %q destroyed after ownership transfer", tex.Name())
		}
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		StateCreated:           "created",
		StateMaterialsLoaded:   "materials-loaded",
		StateMeshesBuilt:       "meshes-built",
		StateHierarchyBuilt:    "hierarchy-built",
		StateRenderersAttached: "renderers-attached",
		StatePostProcessed:     "post-processed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("state %d: expected %q, got %q", int(s), want, got)
		}
	}
	if got := State(99).String(); got != "state(99)" {
		t.Errorf("out-of-range state: got %q", got)
	}
}
