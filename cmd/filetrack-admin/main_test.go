package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/config"
	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/migrate"
)

func TestPrintUsageListsCommandsInOrder(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	idx := func(name string) int { return strings.Index(out, "  "+name) }
	for _, name := range []string{"list-jobs", "migrate", "seed-settings", "sweep-scratch"} {
		require.NotEqual(t, -1, idx(name), name)
	}
	assert.Less(t, idx("list-jobs"), idx("migrate"))
	assert.Less(t, idx("seed-settings"), idx("sweep-scratch"))
}

func TestParseListJobsFlags(t *testing.T) {
	t.Parallel()
	opts, err := parseListJobsFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateSaved, opts.State)
	assert.Equal(t, defaultQueryTimeout, opts.Timeout)

	opts, err = parseListJobsFlags([]string{"--state", "In_Production", "--filter", "customer == 'acme'", "--json"})
	require.NoError(t, err)
	assert.Equal(t, model.JobStateInProduction, opts.State)
	assert.Equal(t, "customer == 'acme'", opts.Filter)
	assert.True(t, opts.JSON)

	_, err = parseListJobsFlags([]string{"--state", "archived"})
	require.ErrorContains(t, err, "unknown job state")
	_, err = parseListJobsFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestParseSweepAndMigrateFlags(t *testing.T) {
	t.Parallel()
	opts, err := parseSweepFlags(nil, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, opts.MaxAge)

	_, err = parseSweepFlags([]string{"--max-age", "-1m"}, time.Hour)
	require.Error(t, err)

	m, err := parseMigrateFlags([]string{"--timeout", "30s"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, m.Timeout)
	assert.False(t, m.Status)

	m, err = parseMigrateFlags([]string{"--status"})
	require.NoError(t, err)
	assert.True(t, m.Status)

	s, err := parseSeedFlags([]string{"--replace-path", "--allow-remote"})
	require.NoError(t, err)
	assert.True(t, s.ReplacePath)
	assert.True(t, s.AllowRemote)
}

func TestIsLikelyRemoteHost(t *testing.T) {
	t.Parallel()
	for host, want := range map[string]bool{
		"":                 false,
		"localhost":        false,
		"127.0.0.1":        false,
		"::1":              false,
		"db.local":         false,
		"10.1.2.3":         true,
		"db.prod.internal": true,
	} {
		assert.Equal(t, want, isLikelyRemoteHost(host), host)
	}
}

func TestRenderJobsTable(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, renderJobsTable(&buf, []model.JobSummary{
		{"id": "j1", "state": "saved", "customer": "acme", "year": "2024"},
		{"id": "j2", "state": "reported", "customer": "globex"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"id", "state", "customer", "year"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"j1", "saved", "acme", "2024"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"j2", "reported", "globex", "-"}, strings.Fields(lines[2]))

	buf.Reset()
	require.NoError(t, renderJobsTable(&buf, nil))
	assert.Equal(t, "no jobs found\n", buf.String())
}

func TestRenderJobsJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, renderJobsJSON(&buf, []model.JobSummary{{"id": "j1", "state": "saved"}}))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []map[string]string{{"id": "j1", "state": "saved"}}, got)
}

func TestRunSweepScratch(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "scratch")
	stale := filepath.Join(dir, "old-job")
	fresh := filepath.Join(dir, "new-job")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	var out bytes.Buffer
	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.DiscardHandler),
		Config: config.AppConfig{Scratch: config.ScratchConfig{Dir: dir, MaxAge: time.Hour}},
		Out:    &out,
	}
	require.NoError(t, runSweepScratch(cmdCtx, nil))

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.Contains(t, out.String(), "removed 1 scratch entries")
}

func TestRenderMigrationStatus(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, renderMigrationStatus(&buf, []migrate.Migration{
		{Version: "0001_init", Applied: true},
		{Version: "0002_reports", Applied: false},
	}))
	assert.Equal(t, "0001_init\tapplied\n0002_reports\tpending\n", buf.String())
}
