package engine

import (
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Renderer and Config are set by the engine before FnInitialize runs.
	Renderer     *renderer.Renderer
	Config       *core.Config
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render records the given frame. It runs between the renderer's BeginFrame and EndFrame.
type Render func(frame uint64, deltaTime float64) error
type Shutdown func() error
