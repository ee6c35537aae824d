/*
Runs the testbed workload on one of the renderer backends and optionally exports its
pipeline layout as WebGPU bind group entries.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-rhi/engine"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/testbed"
)

func main() {
	configPath := flag.String("config", "", "TOML config file layered on top of the defaults")
	backend := flag.String("backend", "", "renderer backend, headless or vulkan (overrides the config)")
	frames := flag.Uint64("frames", 0, "number of frames to run, 0 keeps the config value")
	exportWebGPU := flag.String("export-webgpu", "", "write the testbed layout as WebGPU bind group entries to this file")
	flag.Parse()

	tb := testbed.NewTestGame(&engine.ApplicationConfig{
		ConfigPath: *configPath,
		Backend:    *backend,
		Frames:     *frames,
	})

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("%s", err)
	}

	if *exportWebGPU != "" {
		if err := tb.ExportWebGPU(*exportWebGPU); err != nil {
			core.LogError("%s", err)
		}
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Events().Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, nil)
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("%s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
