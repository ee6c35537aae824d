package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// HeadlessRenderer runs the renderer contract on the in-memory device. Every frame
// records into a fresh Recorder, so the last frame's bindings can be inspected.
type HeadlessRenderer struct {
	device    *Device
	recorder  *Recorder
	recording bool
	frame     uint64
}

func New() *HeadlessRenderer {
	return &HeadlessRenderer{recorder: NewRecorder()}
}

func (hr *HeadlessRenderer) Initialize(appName string, cfg *core.Config) error {
	hr.device = NewDevice(cfg.Limits)
	core.LogInfo("headless renderer initialized for %q", appName)
	return nil
}

func (hr *HeadlessRenderer) Shutdown() error {
	if hr.device == nil {
		return nil
	}
	sets, imageViews, bufferViews, batches := hr.device.Stats()
	if sets != 0 || imageViews != 0 || bufferViews != 0 {
		core.LogWarn("headless device shut down with %d sets, %d image views and %d buffer views still alive",
			sets, imageViews, bufferViews)
	}
	core.LogDebug("headless device applied %d update batches", batches)
	hr.device = nil
	return nil
}

func (hr *HeadlessRenderer) BeginFrame(frame uint64) error {
	hr.recorder.Reset()
	hr.recording = true
	hr.frame = frame
	return nil
}

func (hr *HeadlessRenderer) EndFrame(frame uint64) error {
	hr.recording = false
	return nil
}

func (hr *HeadlessRenderer) Device() heap.Device {
	return hr.device
}

// HeadlessDevice exposes the concrete device for inspection.
func (hr *HeadlessRenderer) HeadlessDevice() *Device {
	return hr.device
}

func (hr *HeadlessRenderer) Recorder() *Recorder {
	return hr.recorder
}

func (hr *HeadlessRenderer) PipelineLayoutCreate(name string, bindings []metadata.Binding) (metadata.PipelineLayout, error) {
	return PipelineLayoutCreate(name, bindings)
}

func (hr *HeadlessRenderer) PipelineLayoutDestroy(layout metadata.PipelineLayout) {}

func (hr *HeadlessRenderer) TextureCreate(name string, desc metadata.TextureDescriptor) (metadata.Texture, error) {
	return TextureCreate(name, desc)
}

func (hr *HeadlessRenderer) BufferCreate(name string, desc metadata.BufferDescriptor) (metadata.Buffer, error) {
	return BufferCreate(name, desc)
}

func (hr *HeadlessRenderer) SamplerCreate(name string, desc metadata.SamplerDescriptor) (metadata.Sampler, error) {
	return SamplerCreate(name, desc)
}

func (hr *HeadlessRenderer) ResourceDestroy(resource metadata.Resource) {}

func (hr *HeadlessRenderer) BindResourceHeap(h *heap.ResourceHeap, set uint32) error {
	if !hr.recording {
		return fmt.Errorf("BindResourceHeap outside BeginFrame/EndFrame: %w", core.ErrConfiguration)
	}
	_, err := hr.recorder.BindResourceHeap(h, set)
	return err
}
