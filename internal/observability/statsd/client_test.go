package statsd

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenUDP(t *testing.T) net.PacketConn {
	t.Helper()
	pc, err := (&net.ListenConfig{}).ListenPacket(context.Background(), "udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc
}

func readPacket(t *testing.T, pc net.PacketConn) string {
	t.Helper()
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  filetrack.api  ": "filetrack.api",
		"..filetrack..":     "filetrack",
		".":                 "",
		"":                  "",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizePrefix(input), "sanitizePrefix(%q)", input)
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/operation ":   "job_operation",
		"job..operation":    "job.operation",
		"scratch sweep":     "scratch_sweep",
		"job:files|removed": "job_files_removed",
		"...":               "",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), "normalizeMetricName(%q)", input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	base := map[string]string{
		"env":       "prod",
		" service ": " filetrack ",
	}
	override := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
		"op":     "update,files",
	}

	assert.Equal(t, "env:stage,op:update_files,result:success,service:filetrack", formatTags(base, override))
	assert.Empty(t, formatTags(nil, nil))
}

func TestNewClientRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{Address: "   "})
	require.ErrorContains(t, err, "address is required")
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{Address: "bad address"})
	require.ErrorContains(t, err, "statsd dial")
}

func TestClient_BatchesLinesUntilFlush(t *testing.T) {
	t.Parallel()
	pc := listenUDP(t)

	c, err := NewClient(context.Background(), Config{
		Address:       pc.LocalAddr().String(),
		Prefix:        "filetrack",
		GlobalTags:    map[string]string{"env": "test"},
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.Count("job.operation", 1, map[string]string{"operation": "create", "result": "success"})
	c.Gauge("job.operation.files", 3, nil)
	c.Timing("job.operation.duration", 1500*time.Microsecond, map[string]string{"operation": "create"})
	c.Flush()

	lines := strings.Split(readPacket(t, pc), "\n")
	assert.Equal(t, []string{
		"filetrack.job.operation:1|c|#env:test,operation:create,result:success",
		"filetrack.job.operation.files:3|g|#env:test",
		"filetrack.job.operation.duration:1.5|ms|#env:test,operation:create",
	}, lines)
}

func TestClient_FlushesFullPackets(t *testing.T) {
	t.Parallel()
	pc := listenUDP(t)

	c, err := NewClient(context.Background(), Config{Address: pc.LocalAddr().String(), FlushInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	name := "scratch.sweep." + strings.Repeat("x", 100)
	for range 20 {
		c.Count(name, 1, nil)
	}

	packet := readPacket(t, pc)
	assert.LessOrEqual(t, len(packet), maxPacketSize)
	assert.True(t, strings.HasPrefix(packet, name+":1|c"))
}

func TestClient_PeriodicFlush(t *testing.T) {
	t.Parallel()
	pc := listenUDP(t)

	c, err := NewClient(context.Background(), Config{Address: pc.LocalAddr().String(), FlushInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.Count("scratch.sweep", 1, map[string]string{"result": "noop"})
	assert.Equal(t, "scratch.sweep:1|c|#result:noop", readPacket(t, pc))
}

func TestClient_CloseFlushesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	pc := listenUDP(t)

	c, err := NewClient(context.Background(), Config{Address: pc.LocalAddr().String(), FlushInterval: time.Hour})
	require.NoError(t, err)

	c.Count("job.operation", 2, nil)
	require.NoError(t, c.Close())
	assert.Equal(t, "job.operation:2|c", readPacket(t, pc))

	require.NoError(t, c.Close())
	c.Count("job.operation", 1, nil)

	var nilClient *Client
	nilClient.Count("job.operation", 1, nil)
	nilClient.Flush()
	require.NoError(t, nilClient.Close())
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	tags := map[string]string{"result": "success"}
	r.Count("job.operation", 1, tags)
	r.Timing("job.operation.duration", 2*time.Millisecond, tags)
	tags["result"] = "mutated"

	got := r.Named("job.operation")
	require.Len(t, got, 1)
	assert.Equal(t, KindCount, got[0].Kind)
	assert.Equal(t, "success", got[0].Tags["result"])

	timing := r.Named("job.operation.duration")
	require.Len(t, timing, 1)
	assert.InDelta(t, 2.0, timing[0].Value, 1e-9)
	assert.Len(t, r.Samples(), 2)
}
