package gpu

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"noop", BackendNoop, false},
		{"Software", BackendSoftware, false},
		{"", BackendNoop, false},
		{"vulkan", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenBackends(t *testing.T) {
	for _, b := range []Backend{BackendNoop, BackendSoftware} {
		t.Run(string(b), func(t *testing.T) {
			dev, err := Open(b)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer dev.Close()

			if _, ok := dev.HalDevice().(hal.Device); !ok {
				t.Errorf("HalDevice() is %T, want hal.Device", dev.HalDevice())
			}
			if _, ok := dev.HalQueue().(hal.Queue); !ok {
				t.Errorf("HalQueue() is %T, want hal.Queue", dev.HalQueue())
			}
			if dev.Backend() != b {
				t.Errorf("Backend() = %q, want %q", dev.Backend(), b)
			}

			surf, err := dev.CreateSurface()
			if err != nil {
				t.Fatalf("CreateSurface: %v", err)
			}
			if surf == nil {
				t.Error("CreateSurface returned nil")
			}
			dev.Close()
		})
	}
}

func TestSoftwareAdapterType(t *testing.T) {
	dev, err := Open(BackendSoftware)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()
	if got := dev.AdapterInfo().Type; got != gpucontext.AdapterTypeSoftware {
		t.Errorf("AdapterInfo().Type = %v, want %v", got, gpucontext.AdapterTypeSoftware)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("metal"); err == nil {
		t.Error("Open accepted an unknown backend")
	}
}

// idleFailDevice reports an error from WaitIdle.
type idleFailDevice struct {
	hal.Device
}

func (idleFailDevice) WaitIdle() error { return errors.New("device lost") }

func TestCloseLogsWaitIdleFailure(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	dev, err := Open(BackendNoop)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dev.device = idleFailDevice{Device: dev.device}
	dev.Close()
	dev.Close()

	out := buf.String()
	if !strings.Contains(out, "gpu: wait idle before close failed") || !strings.Contains(out, "device lost") {
		t.Errorf("Close did not log the WaitIdle error, got: %q", out)
	}
	if n := strings.Count(out, "wait idle"); n != 1 {
		t.Errorf("logged %d times, want 1", n)
	}
}
