package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima-rhi/engine/core"
)

func init() {
	// GLFW must be driven from the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW runtime. Only the Vulkan loader is needed: heaps are created
// and bound without a window or surface.
type Platform struct {
	started   bool
	startTime float64
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup() error {
	if p.started {
		return nil
	}
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := fmt.Errorf("no Vulkan loader found: %w", core.ErrConfiguration)
		core.LogError("%s", err)
		return err
	}
	p.started = true
	p.startTime = glfw.GetTime()
	return nil
}

func (p *Platform) Shutdown() error {
	if !p.started {
		return nil
	}
	glfw.Terminate()
	p.started = false
	return nil
}

// GetVulkanGetInstanceProcAddress returns the loader entry point vk.SetGetInstanceProcAddr
// expects.
func (p *Platform) GetVulkanGetInstanceProcAddress() (unsafe.Pointer, error) {
	if !p.started {
		return nil, fmt.Errorf("platform not started: %w", core.ErrConfiguration)
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrConfiguration)
	}
	return procAddr, nil
}

// GetAbsoluteTime is the number of seconds since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	if !p.started {
		return 0
	}
	return glfw.GetTime() - p.startTime
}
