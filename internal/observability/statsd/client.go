// Package statsd emits job lifecycle and sweeper metrics using the StatsD line protocol with
// DogStatsD-style tags.
package statsd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxPacketSize keeps batched datagrams under a typical 1500 byte MTU.
const maxPacketSize = 1432

const defaultFlushInterval = time.Second

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Address       string
	Prefix        string
	GlobalTags    map[string]string
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Client buffers metric lines and writes them to a UDP endpoint in batches.
// Lines are flushed when a packet fills up, on every FlushInterval and on Close.
// It is safe for concurrent use.
type Client struct {
	prefix     string
	globalTags string
	logger     *slog.Logger

	mu   sync.Mutex
	conn net.Conn
	buf  bytes.Buffer

	stop chan struct{}
	done chan struct{}
}

var _ Sink = (*Client)(nil)

// NewClient dials addr and starts the background flusher.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, errors.New("statsd address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}

	cfg.Logger = logger.With("component", "statsd", "address", address)
	return newClient(conn, cfg), nil
}

// newClient wraps conn and starts the background flusher.
func newClient(conn net.Conn, cfg Config) *Client {
	c := &Client{
		prefix:     sanitizePrefix(cfg.Prefix),
		globalTags: formatTags(cfg.GlobalTags, nil),
		logger:     cfg.Logger,
		conn:       conn,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	go c.flushLoop(interval)
	return c
}

// Count increments a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.record(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge records the current value for a gauge metric.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.record(name, formatFloat(value), "g", tags)
}

// Timing records a timing metric in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	c.record(name, formatFloat(float64(value)/float64(time.Millisecond)), "ms", tags)
}

// Flush writes any buffered lines immediately.
func (c *Client) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// Close flushes pending lines, stops the flusher and releases the connection.
// Calling Close more than once is safe.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.flushLocked()
	err := c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return err
}

func (c *Client) flushLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Flush()
		}
	}
}

func (c *Client) record(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	metric := c.metricName(name)
	if metric == "" {
		return
	}
	line := c.line(metric, value, kind, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if c.buf.Len() > 0 && c.buf.Len()+1+len(line) > maxPacketSize {
		c.flushLocked()
	}
	if c.buf.Len() > 0 {
		c.buf.WriteByte('\n')
	}
	c.buf.WriteString(line)
	if c.buf.Len() >= maxPacketSize {
		c.flushLocked()
	}
}

func (c *Client) line(metric, value, kind string, tags map[string]string) string {
	var b strings.Builder
	b.WriteString(metric)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)

	local := formatTags(tags, nil)
	switch {
	case c.globalTags != "" && local != "":
		b.WriteString("|#")
		b.WriteString(c.globalTags)
		b.WriteByte(',')
		b.WriteString(local)
	case c.globalTags != "":
		b.WriteString("|#")
		b.WriteString(c.globalTags)
	case local != "":
		b.WriteString("|#")
		b.WriteString(local)
	}
	return b.String()
}

func (c *Client) flushLocked() {
	if c.buf.Len() == 0 || c.conn == nil {
		return
	}
	if _, err := c.conn.Write(c.buf.Bytes()); err != nil {
		c.logger.Debug("statsd write failed", "error", err, "bytes", c.buf.Len())
	}
	c.buf.Reset()
}

func (c *Client) metricName(name string) string {
	normalized := normalizeMetricName(name)
	if normalized == "" {
		return ""
	}
	if c.prefix == "" {
		return normalized
	}
	return c.prefix + "." + normalized
}

func sanitizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), ".")
}

// normalizeMetricName maps characters StatsD treats as separators to underscores.
func normalizeMetricName(name string) string {
	n := strings.TrimSpace(name)
	n = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', ':', '|', '@', '#', ',':
			return '_'
		}
		return r
	}, n)
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// formatTags renders tags as sorted key:value pairs. Keys in override replace keys in base.
func formatTags(base, override map[string]string) string {
	merged := make(map[string]string, len(base)+len(override))
	for _, src := range []map[string]string{base, override} {
		for k, v := range src {
			if key := tagToken(k); key != "" {
				merged[key] = tagToken(v)
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + merged[k]
	}
	return strings.Join(pairs, ",")
}

// tagToken trims a tag key or value and strips the tag delimiters.
func tagToken(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || r == '|' || r == '#' {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
