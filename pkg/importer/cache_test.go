package importer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/runtime/headless"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// pngBytes encodes a solid-color image for use as a texture payload.
func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

// countingProvider returns a byte provider that counts invocations.
func countingProvider(data []byte, calls *int) vrm.ByteProvider {
	return func(context.Context) ([]byte, error) {
		*calls++
		return data, nil
	}
}

func TestGetTextureDeduplicates(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	calls := 0
	param := TextureImportParam{
		Name:    "body",
		Kind:    KindSRGB,
		Sampler: vrm.DefaultSampler(),
		Fetch:   countingProvider(pngBytes(t, 4, 4, color.NRGBA{200, 10, 10, 255}), &calls),
	}

	first, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if first != second {
		t.Error("expected identical handle for identical key")
	}
	if calls != 1 {
		t.Errorf("expected 1 decode, got %d", calls)
	}
	if len(eng.Textures) != 1 {
		t.Errorf("expected 1 created texture, got %d", len(eng.Textures))
	}

	e := cache.Entry("body")
	if e == nil {
		t.Fatal("expected cache entry for raw key")
	}
	if !e.Used || e.External {
		t.Errorf("expected used=true external=false, got used=%v external=%v", e.Used, e.External)
	}
	if !e.IsSubAsset() {
		t.Error("expected sRGB entry to be a sub-asset")
	}
}

func TestExternalTextureShortCircuitsDecode(t *testing.T) {
	eng := headless.New()
	host, err := eng.CreateTexture(BlankTexels(), runtime.TextureOptions{Name: "host"})
	if err != nil {
		t.Fatalf("creating host texture: %v", err)
	}

	cache := NewTextureCache(eng, map[string]runtime.Texture{"body": host}, nil)

	calls := 0
	param := TextureImportParam{
		Name:    "body",
		Kind:    KindSRGB,
		Sampler: vrm.DefaultSampler(),
		Fetch:   countingProvider(pngBytes(t, 2, 2, color.NRGBA{0, 0, 0, 255}), &calls),
	}

	got, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("external request: %v", err)
	}
	if got != host {
		t.Error("expected the host-supplied handle")
	}
	if calls != 0 {
		t.Errorf("expected no byte-source invocation, got %d", calls)
	}

	e := cache.Entry("body")
	if e == nil || !e.External || !e.Used {
		t.Fatalf("expected used external entry, got %+v", e)
	}
	if e.IsSubAsset() {
		t.Error("external entry must not be a sub-asset")
	}

	// Disposal leaves the host texture untouched.
	cache.Dispose()
	if host.(*headless.Texture).DestroyCount != 0 {
		t.Error("external texture was destroyed by the cache")
	}
}

func TestNormalMapOverExternalBaseDecodesSource(t *testing.T) {
	eng := headless.New()
	host, err := eng.CreateTexture(BlankTexels(), runtime.TextureOptions{Name: "host"})
	if err != nil {
		t.Fatalf("creating host texture: %v", err)
	}
	cache := NewTextureCache(eng, map[string]runtime.Texture{"body": host}, nil)

	calls := 0
	fetch := countingProvider(pngBytes(t, 2, 2, color.NRGBA{128, 128, 255, 255}), &calls)

	// The color request resolves to the override without decoding.
	got, err := cache.GetTexture(context.Background(), TextureImportParam{
		Name:    "body",
		Kind:    KindSRGB,
		Sampler: vrm.DefaultSampler(),
		Fetch:   fetch,
	})
	if err != nil {
		t.Fatalf("color request: %v", err)
	}
	if got != host || calls != 0 {
		t.Fatalf("expected undecoded override handle, got %v after %d decodes", got, calls)
	}

	// Reusing the same image as a normal map must decode the source
	// bytes for the conversion instead of reading override texels.
	conv, err := cache.GetTexture(context.Background(), TextureImportParam{
		Name:          "body",
		ConvertedName: NormalKey("body"),
		Kind:          KindNormalMap,
		Sampler:       vrm.DefaultSampler(),
		Fetch:         fetch,
	})
	if err != nil {
		t.Fatalf("normal request: %v", err)
	}
	if conv == host {
		t.Fatal("conversion returned the override handle")
	}
	if calls != 1 {
		t.Errorf("expected 1 decode for the conversion base, got %d", calls)
	}
	if e := cache.Entry(NormalKey("body")); e == nil || !e.Used || e.External {
		t.Fatalf("expected used internal converted entry, got %+v", e)
	}
}

func TestNormalMapKeepsRawBaseUnused(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	calls := 0
	param := TextureImportParam{
		Name:          "face_n",
		ConvertedName: NormalKey("face_n"),
		Kind:          KindNormalMap,
		Sampler:       vrm.DefaultSampler(),
		Fetch:         countingProvider(pngBytes(t, 2, 2, color.NRGBA{128, 128, 255, 255}), &calls),
	}

	first, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("normal request: %v", err)
	}
	second, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("repeated normal request: %v", err)
	}
	if first != second {
		t.Error("expected cache hit on converted key")
	}
	if calls != 1 {
		t.Errorf("expected 1 decode of the raw base, got %d", calls)
	}

	raw := cache.Entry("face_n")
	if raw == nil {
		t.Fatal("expected intermediate raw entry to stay cached")
	}
	if raw.Used {
		t.Error("raw base must stay unused")
	}
	conv := cache.Entry(NormalKey("face_n"))
	if conv == nil || !conv.Used || conv.External {
		t.Fatalf("expected used internal converted entry, got %+v", conv)
	}

	if raw.Texture.(*headless.Texture).Linear != true {
		t.Error("raw normal base must be decoded linearly")
	}
}

func TestStandardMapWithoutOcclusion(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	// B carries metallic, G carries roughness in the glTF layout.
	mrData := pngBytes(t, 2, 2, color.NRGBA{10, 100, 200, 255})
	param := TextureImportParam{
		Name:            "mr",
		ConvertedName:   StandardKey("mr", ""),
		Kind:            KindStandardMap,
		Sampler:         vrm.DefaultSampler(),
		Fetch:           func(context.Context) ([]byte, error) { return mrData, nil },
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}

	tex, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("standard request: %v", err)
	}

	e := cache.Entry(StandardKey("mr", ""))
	if e == nil {
		t.Fatal("expected converted entry keyed by the standard key")
	}
	if e.Texture != tex || !e.Used || e.External {
		t.Errorf("expected used internal entry, got %+v", e)
	}
	// No raw source entry is retained for standard-map inputs.
	if cache.Entry("mr") != nil {
		t.Error("unexpected raw entry for standard-map source")
	}

	img := tex.(*headless.Texture).Image
	px := img.Pix[:4]
	if px[0] != 200 {
		t.Errorf("metallic channel: expected 200, got %d", px[0])
	}
	if px[1] != 255 {
		t.Errorf("occlusion channel with absent source: expected 255, got %d", px[1])
	}
	if px[2] != 0 {
		t.Errorf("blue channel: expected 0, got %d", px[2])
	}
	if px[3] != 155 {
		t.Errorf("smoothness channel: expected 155, got %d", px[3])
	}
}

func TestEmptyBytesYieldBlankTexture(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	param := TextureImportParam{
		Name:    "missing",
		Kind:    KindSRGB,
		Sampler: vrm.DefaultSampler(),
		Fetch:   func(context.Context) ([]byte, error) { return nil, nil },
	}
	tex, err := cache.GetTexture(context.Background(), param)
	if err != nil {
		t.Fatalf("blank request: %v", err)
	}

	img := tex.(*headless.Texture).Image
	if img.Rect.Dx() != 2 || img.Rect.Dy() != 2 {
		t.Errorf("expected default 2x2 texture, got %dx%d", img.Rect.Dx(), img.Rect.Dy())
	}
	for _, p := range img.Pix {
		if p != 0xff {
			t.Fatal("expected opaque white blank texture")
		}
	}
}

func TestDisposeDestroysSubAssetsExactlyOnce(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	for _, name := range []string{"a", "b"} {
		data := pngBytes(t, 2, 2, color.NRGBA{1, 2, 3, 255})
		_, err := cache.GetTexture(context.Background(), TextureImportParam{
			Name:    name,
			Kind:    KindSRGB,
			Sampler: vrm.DefaultSampler(),
			Fetch:   func(context.Context) ([]byte, error) { return data, nil },
		})
		if err != nil {
			t.Fatalf("texture %q: %v", name, err)
		}
	}

	cache.Dispose()
	for _, tex := range eng.Textures {
		if tex.DestroyCount != 1 {
			t.Errorf("texture %q: expected 1 destroy, got %d", tex.TexName, tex.DestroyCount)
		}
	}

	// A second dispose finds an empty cache and destroys nothing more.
	cache.Dispose()
	for _, tex := range eng.Textures {
		if tex.DestroyCount != 1 {
			t.Errorf("texture %q destroyed twice", tex.TexName)
		}
	}
}

func TestTransferOwnershipRemovesAcceptedEntries(t *testing.T) {
	eng := headless.New()
	cache := NewTextureCache(eng, nil, nil)

	for _, name := range []string{"keep", "take"} {
		data := pngBytes(t, 2, 2, color.NRGBA{9, 9, 9, 255})
		_, err := cache.GetTexture(context.Background(), TextureImportParam{
			Name:    name,
			Kind:    KindSRGB,
			Sampler: vrm.DefaultSampler(),
			Fetch:   func(context.Context) ([]byte, error) { return data, nil },
		})
		if err != nil {
			t.Fatalf("texture %q: %v", name, err)
		}
	}

	var offered []string
	cache.TransferOwnership(func(tex runtime.Texture) bool {
		offered = append(offered, tex.Name())
		return tex.Name() == "take"
	})
	if len(offered) != 2 {
		t.Fatalf("expected both sub-assets offered, got %v", offered)
	}
	if cache.Entry("take") != nil {
		t.Error("accepted entry still present in cache")
	}
	if cache.Entry("keep") == nil {
		t.Error("declined entry missing from cache")
	}

	cache.Dispose()
	for _, tex := range eng.Textures {
		want := 1
		if tex.TexName == "take" {
			want = 0
		}
		if tex.DestroyCount != want {
			t.Errorf("texture %q: expected %d destroys, got %d", tex.TexName, want, tex.DestroyCount)
		}
	}
}

func TestUnknownImportKindIsFatal(t *testing.T) {
	cache := NewTextureCache(headless.New(), nil, nil)
	_, err := cache.GetTexture(context.Background(), TextureImportParam{
		Name: "x",
		Kind: ImportKind(42),
	})
	if err == nil {
		t.Fatal("expected error for unknown import kind")
	}
}
