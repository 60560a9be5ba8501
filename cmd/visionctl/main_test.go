package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mixaill76/auto_ai_vision/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func imageServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()
	data := testhelpers.PNGBytes(t, width, height)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCostCmd(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"cost", "1024", "1024"}, "765"},
		{[]string{"cost", "512", "512", "--version", "b"}, "255"},
		{[]string{"cost", "980", "970", "--version", "a"}, "630"},
		{[]string{"cost", "4096", "4096", "--detail", "low"}, "85"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestCostCmd_Errors(t *testing.T) {
	_, _, err := run(t, "cost", "10", "tall")
	assert.ErrorContains(t, err, "invalid height")

	_, _, err = run(t, "cost", "0", "10")
	assert.Error(t, err)

	_, _, err = run(t, "cost", "10", "10", "--version", "z")
	assert.Error(t, err)

	_, _, err = run(t, "cost", "10")
	assert.Error(t, err)
}

func TestSegmentCmd(t *testing.T) {
	dir := t.TempDir()
	testhelpers.WriteFile(t, dir, "a.png", testhelpers.PNGBytes(t, 512, 512))
	t.Chdir(dir)

	out, stderr, err := run(t, "segment", "--log-level", "error", "Describe !a.png please", "!missing.png hi")
	require.NoError(t, err)
	assert.Equal(t, "Describe [image: LocalFile(a.png)] please\n!missing.png hi\n", out)
	assert.Empty(t, stderr)
}

func TestSegmentCmd_WarnsOnMissingPath(t *testing.T) {
	t.Chdir(t.TempDir())

	_, stderr, err := run(t, "segment", "!missing.png hi")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=WARN")
	assert.Contains(t, stderr, "missing.png")
}

func TestSegmentCmd_TokensAndProvider(t *testing.T) {
	ts := imageServer(t, 512, 513)

	out, _, err := run(t, "segment", "--tokens", "--provider", "openai", "look !"+ts.URL+"/x.png")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "look [image: RemoteReference("+ts.URL+"/x.png, 512x513)]", lines[0])
	// default cost version b: 85 + 2*170, plus the message overhead
	assert.Equal(t, "tokens: 432 (reserve 0)", lines[1])
	assert.Contains(t, lines[2], `"image_url"`)
	assert.Contains(t, lines[2], ts.URL+"/x.png")
}

func TestSegmentCmd_UnknownProvider(t *testing.T) {
	_, _, err := run(t, "segment", "--provider", "llava", "hello")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestSniffCmd(t *testing.T) {
	ts := imageServer(t, 640, 480)

	out, _, err := run(t, "sniff", ts.URL+"/a.png")
	require.NoError(t, err)
	assert.Contains(t, out, ts.URL+"/a.png\t640x480\timage/png\t")

	out, _, err = run(t, "sniff", "--download", ts.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/a.png\t640x480\timage/png\n", out)
}

func TestSniffCmd_NotAnImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	_, _, err := run(t, "sniff", ts.URL)
	assert.ErrorContains(t, err, "not an image")
}

func TestConfigFile_MetricsAndCache(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "vision.prom")
	configPath := testhelpers.WriteFile(t, dir, "config.yaml", []byte(`
logging_level: error
cache:
  enabled: true
cost:
  version: a
monitoring:
  prometheus_enabled: true
  metrics_file: `+metricsPath+`
`))
	ts := imageServer(t, 100, 50)

	out, _, err := run(t, "--config", configPath, "sniff", ts.URL, ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "100x50"))

	out, _, err = run(t, "-c", configPath, "cost", "512", "512")
	require.NoError(t, err)
	assert.Equal(t, "210\n", out)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_ai_vision_fetches_total")
	assert.Contains(t, string(data), "auto_ai_vision_metadata_cache_total")
	assert.Contains(t, string(data), "auto_ai_vision_image_tokens_total")
}

func TestConfigFile_Invalid(t *testing.T) {
	configPath := testhelpers.WriteFile(t, t.TempDir(), "config.yaml", []byte("logging_level: loud\n"))

	_, _, err := run(t, "--config", configPath, "cost", "1", "1")
	assert.ErrorContains(t, err, "invalid logging_level")
}
