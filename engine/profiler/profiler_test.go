package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsAverageOverWindow(t *testing.T) {
	p := NewProfiler()
	assert.Zero(t, p.Stats().AvgFrameCPU)

	p.RecordFrame(Sample{CPU: 10 * time.Millisecond, GPU: 4 * time.Millisecond}, map[string]Sample{
		"building": {CPU: 2 * time.Millisecond, GPU: 1 * time.Millisecond},
		"culling":  {CPU: 3 * time.Millisecond, GPU: 2 * time.Millisecond},
	})
	p.RecordFrame(Sample{CPU: 20 * time.Millisecond, GPU: 8 * time.Millisecond}, map[string]Sample{
		"culling": {CPU: 5 * time.Millisecond, GPU: 4 * time.Millisecond},
	})

	s := p.Stats()
	assert.Equal(t, uint64(2), s.Frames)
	assert.Equal(t, 15*time.Millisecond, s.AvgFrameCPU)
	assert.Equal(t, 6*time.Millisecond, s.AvgFrameGPU)
	// building ran once, so its average is over one frame
	assert.Equal(t, 2*time.Millisecond, s.Views["building"].AvgCPU)
	assert.Equal(t, 4*time.Millisecond, s.Views["culling"].AvgCPU)
	assert.Equal(t, 3*time.Millisecond, s.Views["culling"].AvgGPU)
	assert.Equal(t, []string{"building", "culling"}, s.ViewNames())

	p.Reset()
	s = p.Stats()
	assert.Zero(t, s.Frames)
	assert.Empty(t, s.Views)
}

func TestTickLogsAfterInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	p := NewProfiler(WithUpdateInterval(time.Hour))
	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())

	p = NewProfiler(WithUpdateInterval(time.Nanosecond))
	time.Sleep(time.Millisecond)
	require.True(t, p.Tick())
	assert.Contains(t, buf.String(), "[Profiler]")
	assert.Contains(t, buf.String(), "fps=")
}
