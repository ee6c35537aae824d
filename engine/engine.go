package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima-rhi/engine/containers"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/platform"
	"github.com/spaghettifunk/anima-rhi/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	default:
		return "uninitialized"
	}
}

// metricsInterval is how often, in frames, the heap counters are logged at debug level.
const metricsInterval = 120

type Engine struct {
	mutex        sync.Mutex
	currentStage Stage

	gameInstance *Game
	isRunning    atomic.Bool
	platform     *platform.Platform
	renderer     *renderer.Renderer
	config       *core.Config
	watcher      *core.ConfigWatcher
	events       *core.EventSystem
	clock        *core.Clock
	lastTime     float64
	// seconds spent in each of the last metricsInterval frames
	frameTimes *containers.RingQueue[float64]
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game has no application config: %w", core.ErrConfiguration)
	}
	cfg, err := g.ApplicationConfig.Load()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogWarn("invalid log level %q, keeping %s", cfg.Log.Level, core.LogLevel())
	}

	rendererType, err := renderer.ParseRendererType(cfg.Application.Backend)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	p := platform.New()

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		platform:     p,
		renderer:     renderer.New(rendererType, p),
		config:       cfg,
		events:       core.NewEventSystem(),
		clock:        core.NewClock(),
		frameTimes:   containers.NewRingQueue[float64](metricsInterval),
	}
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_CONFIG_RELOADED, e, e.onEvent)
	return e, nil
}

func (e *Engine) Stage() Stage {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.currentStage
}

// transition moves the engine from one stage to the next and fails on any other stage.
func (e *Engine) transition(from, to Stage) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.currentStage != from {
		return fmt.Errorf("engine is %s, expected %s: %w", e.currentStage, from, core.ErrConfiguration)
	}
	e.currentStage = to
	return nil
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

// Events is the engine's event system. Games may register their own listeners on it.
func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) Initialize() error {
	if e.Stage() != EngineStageUninitialized {
		return fmt.Errorf("engine is already %s: %w", e.Stage(), core.ErrConfiguration)
	}

	core.LogInfo("initializing %q on the %s backend", e.config.Application.Name, e.config.Application.Backend)
	if err := e.renderer.Initialize(e.config.Application.Name, e.config); err != nil {
		return err
	}

	if e.config.Watch.Enabled && e.gameInstance.ApplicationConfig.ConfigPath != "" {
		w, err := core.NewConfigWatcher(e.gameInstance.ApplicationConfig.ConfigPath, func(cfg *core.Config) {
			e.events.Fire(core.EVENT_CODE_CONFIG_RELOADED, e, cfg)
		})
		if err != nil {
			// hot reload is a convenience, the engine runs without it
			core.LogWarn("config watcher disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	e.gameInstance.Renderer = e.renderer
	e.gameInstance.Config = e.config
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			core.LogError("game failed to initialize: %s", err)
			e.closeWatcher()
			_ = e.renderer.Shutdown()
			return err
		}
	}
	return e.transition(EngineStageUninitialized, EngineStageInitialized)
}

// Run drives frames until Stop is called or the configured frame count is reached.
func (e *Engine) Run() error {
	if err := e.transition(EngineStageInitialized, EngineStageRunning); err != nil {
		return err
	}
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed().Seconds()

	limit := e.config.Application.Frames
	previous := core.MetricsSnapshot()

	var runErr error
	for e.isRunning.Load() {
		if limit != 0 && e.renderer.FrameNumber() >= limit {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed().Seconds()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				runErr = err
				break
			}
		}
		if err := e.frame(delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			runErr = err
			break
		}

		e.clock.Update()
		e.frameTimes.Push(e.clock.Elapsed().Seconds() - currentTime)
		if frame := e.renderer.FrameNumber(); frame%metricsInterval == 0 {
			current := core.MetricsSnapshot()
			core.LogDebug("frame %d (avg %.3fms): %s", frame, e.AverageFrameTime()*1000, current.Sub(previous))
			previous = current
		}
		e.lastTime = currentTime
	}
	e.isRunning.Store(false)
	e.clock.Stop()

	core.LogInfo("ran %d frames in %s", e.renderer.FrameNumber(), e.clock.Elapsed())
	if err := e.transition(EngineStageRunning, EngineStageInitialized); err != nil {
		return err
	}
	return runErr
}

func (e *Engine) frame(delta float64) error {
	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(e.renderer.FrameNumber(), delta); err != nil {
			// close the frame anyway so the backend is not left recording
			_ = e.renderer.EndFrame()
			return err
		}
	}
	return e.renderer.EndFrame()
}

// AverageFrameTime is the mean duration in seconds of the most recent frames.
func (e *Engine) AverageFrameTime() float64 {
	if e.frameTimes.IsEmpty() {
		return 0
	}
	var total float64
	e.frameTimes.Each(func(t float64) { total += t })
	return total / float64(e.frameTimes.Len())
}

// Stop asks a running engine to return from Run after the current frame. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if err := e.transition(EngineStageInitialized, EngineStageShuttingDown); err != nil {
		return err
	}
	defer func() {
		e.mutex.Lock()
		e.currentStage = EngineStageUninitialized
		e.mutex.Unlock()
	}()

	e.closeWatcher()
	e.events.Shutdown()
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	core.LogInfo("heap metrics: %s", core.MetricsSnapshot())
	return nil
}

func (e *Engine) closeWatcher() {
	if e.watcher == nil {
		return
	}
	if err := e.watcher.Close(); err != nil {
		core.LogWarn("%s", err)
	}
	e.watcher = nil
}

func (e *Engine) onEvent(context core.EventContext, listener interface{}) bool {
	switch context.Code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	case core.EVENT_CODE_CONFIG_RELOADED:
		cfg, ok := context.Data.(*core.Config)
		if !ok {
			core.LogError("wrong data associated with the event code `%d`", context.Code)
			return false
		}
		e.onConfigReload(cfg)
	}
	// other listeners may want to see reloads too
	return false
}

// onConfigReload applies what can change at runtime. Backend, limits and the number
// of frames in flight only take effect on the next start.
func (e *Engine) onConfigReload(cfg *core.Config) {
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogWarn("config reload: %s", err)
		return
	}
	if cfg.Application.Backend != e.config.Application.Backend || cfg.Heap != e.config.Heap || cfg.Limits != e.config.Limits {
		core.LogInfo("config reload: backend, heap and limit changes apply after a restart")
	}
}
