// Package gpu opens a headless hal device and shares it through
// gpucontext.DeviceProvider.
//
// Two backends are available without native drivers: "noop", which accepts
// every call and renders nothing, and "software", a CPU rasterizer. Both run
// in CI and on machines without a GPU.
//
// Usage:
//
//	dev, err := gpu.Open(gpu.BackendSoftware)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	surf, err := dev.CreateSurface()
package gpu

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
)

// Backend names a hal backend.
type Backend string

const (
	BackendNoop     Backend = "noop"
	BackendSoftware Backend = "software"
)

// ErrNoAdapter is returned when a backend exposes no adapters.
var ErrNoAdapter = errors.New("gpu: no adapters found")

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendNoop, BackendSoftware:
		return b, nil
	case "":
		return BackendNoop, nil
	default:
		return "", fmt.Errorf("gpu: unknown backend %q", s)
	}
}

func (b Backend) api() hal.Backend {
	if b == BackendSoftware {
		return software.API{}
	}
	return noop.API{}
}

// Device owns a hal instance, device and queue.
//
// Device implements gpucontext.DeviceProvider and additionally exposes
// HalDevice and HalQueue for consumers that drive hal directly.
type Device struct {
	backend  Backend
	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat

	closeOnce sync.Once
}

// Open creates an instance on backend b and opens its preferred adapter.
func Open(b Backend) (*Device, error) {
	if _, err := ParseBackend(string(b)); err != nil {
		return nil, err
	}
	instance, err := b.api().CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	return &Device{
		backend:  b,
		instance: instance,
		adapter:  selected.Adapter,
		info:     selected.Info,
		device:   openDev.Device,
		queue:    openDev.Queue,
		format:   gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

// Backend returns the backend the device was opened on.
func (d *Device) Backend() Backend { return d.backend }

// CreateSurface creates a headless surface. Presenting to it discards
// the frame.
func (d *Device) CreateSurface() (hal.Surface, error) {
	surf, err := d.instance.CreateSurface(0, 0)
	if err != nil {
		return nil, fmt.Errorf("gpu: create surface: %w", err)
	}
	return surf, nil
}

// Close waits for the device to go idle and releases it. Close is
// idempotent.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		if err := d.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle before close failed", "backend", d.backend, "err", err)
		}
		d.device.Destroy()
		d.instance.Destroy()
	})
}

// Device implements gpucontext.DeviceProvider.
func (d *Device) Device() gpucontext.Device { return d.device }

// Queue implements gpucontext.DeviceProvider.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// SurfaceFormat implements gpucontext.DeviceProvider.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.format }

// Adapter implements gpucontext.DeviceProvider.
func (d *Device) Adapter() gpucontext.Adapter { return d.adapter }

// AdapterInfo implements gpucontext.DeviceProvider.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: adapterType(d.backend, d.info.DeviceType)}
}

// HalDevice returns the underlying hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the underlying hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

func adapterType(b Backend, t gputypes.DeviceType) gpucontext.AdapterType {
	switch {
	case b == BackendSoftware || t == gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	case t == gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case t == gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

var _ gpucontext.DeviceProvider = (*Device)(nil)
