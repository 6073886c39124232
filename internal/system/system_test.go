package system

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkers(t *testing.T) {
	tests := []struct {
		name  string
		host  Host
		frame uint64
		want  int
	}{
		{"cpu bound", Host{LogicalCPUs: 8, AvailableBytes: 1 << 40}, 4 << 20, 8},
		{"memory bound", Host{LogicalCPUs: 8, AvailableBytes: 16 << 20}, 1 << 20, 4},
		{"tiny memory", Host{LogicalCPUs: 8, AvailableBytes: 1 << 20}, 4 << 20, 1},
		{"unknown memory", Host{LogicalCPUs: 3}, 4 << 20, 3},
		{"no frame size", Host{LogicalCPUs: 2, AvailableBytes: 1}, 0, 2},
		{"no cpus", Host{}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.host.Workers(tt.frame))
		})
	}
}

func TestProbe(t *testing.T) {
	h := Probe()
	assert.Positive(t, h.LogicalCPUs)
	assert.GreaterOrEqual(t, RenderWorkers(1280*720*4), 1)
	if h.AvailableBytes > 0 {
		assert.Equal(t, 1, h.Workers(math.MaxUint64))
	}
}
