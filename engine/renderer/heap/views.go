package heap

import (
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type viewKey struct {
	set     uint32
	binding uint32
}

// viewChange classifies a view request against what the slot already holds.
type viewChange uint8

const (
	viewMissing viewChange = iota
	viewUnchanged
	viewResourceChanged
	viewRangeChanged
)

type imageViewEntry struct {
	texture metadata.Texture
	desc    metadata.TextureViewDescriptor
	view    ImageView
}

type bufferViewEntry struct {
	buffer metadata.Buffer
	desc   metadata.BufferViewDescriptor
	view   BufferView
}

func compareImageView(entry imageViewEntry, found bool, texture metadata.Texture, desc metadata.TextureViewDescriptor) viewChange {
	switch {
	case !found:
		return viewMissing
	case entry.texture != texture:
		return viewResourceChanged
	case entry.desc != desc:
		return viewRangeChanged
	}
	return viewUnchanged
}

func compareBufferView(entry bufferViewEntry, found bool, buffer metadata.Buffer, desc metadata.BufferViewDescriptor) viewChange {
	switch {
	case !found:
		return viewMissing
	case entry.buffer != buffer:
		return viewResourceChanged
	case entry.desc != desc:
		return viewRangeChanged
	}
	return viewUnchanged
}

// ViewCache owns the subresource views of one heap, keyed by (set, binding).
// A view is reused only for the same resource and an identical request.
type ViewCache struct {
	device  Device
	images  map[viewKey]imageViewEntry
	buffers map[viewKey]bufferViewEntry
}

func NewViewCache(device Device, info LayoutInfo, numSets uint32) *ViewCache {
	return &ViewCache{
		device:  device,
		images:  make(map[viewKey]imageViewEntry, info.NumImageViews*numSets),
		buffers: make(map[viewKey]bufferViewEntry, info.NumBufferViews*numSets),
	}
}

// StagedView is a pending change to one cache slot. The cache only changes when the
// descriptor write that uses the view has reached the device: Commit then releases the
// slot's previous view, Discard destroys a view created for a write that failed.
type StagedView struct {
	key     viewKey
	buffer  bool
	changed bool
	created bool
	image   imageViewEntry
	texel   bufferViewEntry
}

// ImageView stages the view for a texture write. A request without a subresource view
// stages the default view, returned as nil. The slot keeps its current view until the
// stage is committed.
func (c *ViewCache) ImageView(set, binding uint32, texture metadata.Texture, desc metadata.TextureViewDescriptor) (ImageView, StagedView, error) {
	key := viewKey{set, binding}
	entry, found := c.images[key]
	if !desc.IsEnabled() {
		return nil, StagedView{key: key, changed: found}, nil
	}

	if compareImageView(entry, found, texture, desc) == viewUnchanged {
		core.MetricsCounters().ImageViewsReused.Add(1)
		return entry.view, StagedView{key: key}, nil
	}

	view, err := c.device.CreateImageView(texture, desc)
	if err != nil {
		return nil, StagedView{}, err
	}
	core.MetricsCounters().ImageViewsCreated.Add(1)
	staged := StagedView{
		key:     key,
		changed: true,
		created: true,
		image:   imageViewEntry{texture: texture, desc: desc, view: view},
	}
	return view, staged, nil
}

// BufferView is the buffer counterpart of ImageView. Texel buffers always need a view,
// so desc is the effective request and is never the "whole buffer" sentinel.
func (c *ViewCache) BufferView(set, binding uint32, buffer metadata.Buffer, desc metadata.BufferViewDescriptor) (BufferView, StagedView, error) {
	key := viewKey{set, binding}
	entry, found := c.buffers[key]
	if compareBufferView(entry, found, buffer, desc) == viewUnchanged {
		core.MetricsCounters().BufferViewsReused.Add(1)
		return entry.view, StagedView{key: key, buffer: true}, nil
	}

	view, err := c.device.CreateBufferView(buffer, desc)
	if err != nil {
		return nil, StagedView{}, err
	}
	core.MetricsCounters().BufferViewsCreated.Add(1)
	staged := StagedView{
		key:     key,
		buffer:  true,
		changed: true,
		created: true,
		texel:   bufferViewEntry{buffer: buffer, desc: desc, view: view},
	}
	return view, staged, nil
}

// Commit makes a staged view the slot's view and releases the one it replaces.
func (c *ViewCache) Commit(s StagedView) {
	if !s.changed {
		return
	}
	if s.buffer {
		c.releaseBufferView(s.key)
		if s.created {
			c.buffers[s.key] = s.texel
		}
		return
	}
	c.releaseImageView(s.key)
	if s.created {
		c.images[s.key] = s.image
	}
}

// Discard drops a staged view whose write never reached the device. The slot keeps
// its previous view.
func (c *ViewCache) Discard(s StagedView) {
	if !s.created {
		return
	}
	if s.buffer {
		c.device.DestroyBufferView(s.texel.view)
		core.MetricsCounters().BufferViewsReleased.Add(1)
		return
	}
	c.device.DestroyImageView(s.image.view)
	core.MetricsCounters().ImageViewsReleased.Add(1)
}

func (c *ViewCache) releaseImageView(key viewKey) {
	entry, found := c.images[key]
	if !found {
		return
	}
	c.device.DestroyImageView(entry.view)
	delete(c.images, key)
	core.MetricsCounters().ImageViewsReleased.Add(1)
}

func (c *ViewCache) releaseBufferView(key viewKey) {
	entry, found := c.buffers[key]
	if !found {
		return
	}
	c.device.DestroyBufferView(entry.view)
	delete(c.buffers, key)
	core.MetricsCounters().BufferViewsReleased.Add(1)
}

// Len returns the number of live image and buffer views.
func (c *ViewCache) Len() (images, buffers int) {
	return len(c.images), len(c.buffers)
}

// Release destroys every cached view.
func (c *ViewCache) Release() {
	for key := range c.images {
		c.releaseImageView(key)
	}
	for key := range c.buffers {
		c.releaseBufferView(key)
	}
}
