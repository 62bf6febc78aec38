package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/pkg/importer"
)

// ErrClosed aborts a cooperative import when the window is closed
// before the import completes.
var ErrClosed = errors.New("window closed")

// Viewer owns the window, the GL engine and the render loop. All GL
// work happens on the locked main thread: a cooperative import renders
// one frame per suspension point through FrameAwaiter, so the avatar
// appears progressively while the window stays responsive.
type Viewer struct {
	window  *Window
	engine  *Engine
	log     *zap.Logger
	running bool

	lastTime   time.Time
	frameCount int
	fpsTimer   time.Time

	program      uint32
	locMVP       int32
	locModel     int32
	locBaseColor int32
	locLightDir  int32
	locAmbient   int32

	// Orbit camera around the avatar.
	yaw      float32
	pitch    float32
	distance float32
	target   mgl32.Vec3
	dragging bool

	fallbackTex uint32
}

// New creates a viewer with its own window and engine.
func New(cfg WindowConfig, log *zap.Logger) (*Viewer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	win, err := NewWindow(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := gl.Init(); err != nil {
		win.Close()
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	v := &Viewer{
		window:   win,
		engine:   NewEngine(log),
		log:      log,
		running:  true,
		lastTime: time.Now(),
		fpsTimer: time.Now(),
		yaw:      math.Pi,
		pitch:    0.1,
		distance: 2.5,
		target:   mgl32.Vec3{0, 1, 0},
	}

	v.program, err = compileProgram(avatarVertexShader, avatarFragmentShader)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("avatar shader: %w", err)
	}
	v.locMVP = getUniform(v.program, "uMVP")
	v.locModel = getUniform(v.program, "uModel")
	v.locBaseColor = getUniform(v.program, "uBaseColor")
	v.locLightDir = getUniform(v.program, "uLightDir")
	v.locAmbient = getUniform(v.program, "uAmbient")

	v.fallbackTex = makeFallbackTexture()

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	gl.ClearColor(0.16, 0.17, 0.20, 1.0)

	return v, nil
}

// Engine returns the GL engine for the importer to drive.
func (v *Viewer) Engine() *Engine { return v.engine }

// Close releases the GL program and the window.
func (v *Viewer) Close() {
	if v.program != 0 {
		gl.DeleteProgram(v.program)
	}
	if v.fallbackTex != 0 {
		gl.DeleteTextures(1, &v.fallbackTex)
	}
	v.window.Close()
}

// StepFrame pumps events, renders one frame and presents it. It
// reports false once the window has been closed.
func (v *Viewer) StepFrame() bool {
	if !v.running {
		return false
	}

	now := time.Now()
	dt := float32(now.Sub(v.lastTime).Seconds())
	v.lastTime = now

	v.pollEvents(dt)
	if !v.running {
		return false
	}

	v.render()
	v.window.SwapBuffers()

	v.frameCount++
	if time.Since(v.fpsTimer) >= time.Second {
		v.log.Debug("fps", zap.Int("count", v.frameCount))
		v.frameCount = 0
		v.fpsTimer = time.Now()
	}
	return true
}

// Run drives the render loop until the window closes.
func (v *Viewer) Run() {
	v.log.Info("starting render loop")
	for v.StepFrame() {
	}
}

type frameAwaiter struct {
	v *Viewer
}

func (a frameAwaiter) NextFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.v.StepFrame() {
		return ErrClosed
	}
	return nil
}

// FrameAwaiter adapts the render loop into an import awaiter: every
// suspension point renders one frame on the main thread.
func (v *Viewer) FrameAwaiter() importer.Awaiter {
	return frameAwaiter{v: v}
}

func (v *Viewer) pollEvents(dt float32) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			v.running = false
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Scancode {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_LEFT:
				v.yaw -= 2 * dt
			case sdl.SCANCODE_RIGHT:
				v.yaw += 2 * dt
			case sdl.SCANCODE_UP:
				v.pitch = clampf(v.pitch+dt, -1.4, 1.4)
			case sdl.SCANCODE_DOWN:
				v.pitch = clampf(v.pitch-dt, -1.4, 1.4)
			}
		case *sdl.MouseWheelEvent:
			v.distance = clampf(v.distance-float32(e.Y)*0.2, 0.5, 10)
		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				v.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}
		case *sdl.MouseMotionEvent:
			if v.dragging {
				v.yaw += float32(e.XRel) * 0.01
				v.pitch = clampf(v.pitch-float32(e.YRel)*0.01, -1.4, 1.4)
			}
		}
	}
}

func (v *Viewer) render() {
	width, height := v.window.GetSize()
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	eye := v.target.Add(mgl32.Vec3{
		v.distance * float32(math.Cos(float64(v.pitch))*math.Sin(float64(v.yaw))),
		v.distance * float32(math.Sin(float64(v.pitch))),
		v.distance * float32(math.Cos(float64(v.pitch))*math.Cos(float64(v.yaw))),
	})
	view := mgl32.LookAtV(eye, v.target, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), float32(width)/float32(height), 0.01, 100)
	viewProj := proj.Mul4(view)

	gl.UseProgram(v.program)
	gl.Uniform3f(v.locLightDir, -0.4, -1.0, -0.3)
	gl.Uniform3f(v.locAmbient, 0.35, 0.35, 0.38)
	gl.Uniform1i(v.locBaseColor, 0)
	gl.ActiveTexture(gl.TEXTURE0)

	for _, r := range v.engine.Renderers() {
		v.drawRenderer(r, viewProj)
	}
}

func (v *Viewer) drawRenderer(r *Renderer, viewProj mgl32.Mat4) {
	model := mgl32.Translate3D(spread(r.Node.WorldPosition())).
		Mul4(r.Node.WorldRotation().Mat4())
	mvp := viewProj.Mul4(model)

	gl.UniformMatrix4fv(v.locMVP, 1, false, &mvp[0])
	gl.UniformMatrix4fv(v.locModel, 1, false, &model[0])

	gl.BindVertexArray(r.Mesh.vao)
	for _, sub := range r.Mesh.ranges {
		tex := baseColorID(r.Mats, sub.materialIndex)
		if tex == 0 {
			tex = v.fallbackTex
		}
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.DrawElementsWithOffset(gl.TRIANGLES, sub.indexCount, gl.UNSIGNED_INT, uintptr(sub.startIndex*4))
	}
	gl.BindVertexArray(0)
}

// makeFallbackTexture creates a 2x2 magenta texture for material slots
// without a base color.
func makeFallbackTexture() uint32 {
	pixels := []uint8{
		255, 0, 255, 255, 255, 0, 255, 255,
		255, 0, 255, 255, 255, 0, 255, 255,
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 2, 2, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	return id
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func spread(v mgl32.Vec3) (float32, float32, float32) {
	return v.X(), v.Y(), v.Z()
}
