package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragconsole/internal/telemetry"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestLatencyRendersPNG(t *testing.T) {
	var buf bytes.Buffer
	s := telemetry.Series{Labels: []string{"Exp 1", "Exp 2", "Exp 3"}, Values: []float64{1.2, 0.8, 2.0}}
	require.NoError(t, Latency(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestLatencySinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Latency(&buf, telemetry.Series{Labels: []string{"Exp 1"}, Values: []float64{0}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestComparisonSingleBar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Comparison(&buf, telemetry.Series{Labels: []string{"k=3"}, Values: []float64{1.2}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestComparisonRendersPNG(t *testing.T) {
	var buf bytes.Buffer
	s := telemetry.Series{Labels: []string{"k=3", "k=5"}, Values: []float64{1.0, 1.5}}
	require.NoError(t, Comparison(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Latency(&buf, telemetry.Series{}), ErrEmptySeries)
	assert.ErrorIs(t, Comparison(&buf, telemetry.Series{}), ErrEmptySeries)
	assert.Zero(t, buf.Len())
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	lat := telemetry.Series{Labels: []string{"Exp 1"}, Values: []float64{1.2}}

	paths, err := Export(dir, lat, telemetry.Series{}, now)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "latency-20240501-103000.png")}, paths)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	_, err = Export(dir, telemetry.Series{}, telemetry.Series{}, now)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestExportFirstExperiment(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	lat := telemetry.Series{Labels: []string{"Exp 1"}, Values: []float64{1.2}}
	cmp := telemetry.Series{Labels: []string{"k=3"}, Values: []float64{1.2}}

	paths, err := Export(dir, lat, cmp, now)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "latency-20240501-103000.png"),
		filepath.Join(dir, "comparison-20240501-103000.png"),
	}, paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic))
	}
}

func TestExportContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	// a directory in the way makes the latency file impossible to create
	require.NoError(t, os.Mkdir(filepath.Join(dir, "latency-20240501-103000.png"), 0o755))

	lat := telemetry.Series{Labels: []string{"Exp 1", "Exp 2"}, Values: []float64{1.2, 0.8}}
	cmp := telemetry.Series{Labels: []string{"k=3"}, Values: []float64{1.0}}
	paths, err := Export(dir, lat, cmp, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export latency")
	assert.Equal(t, []string{filepath.Join(dir, "comparison-20240501-103000.png")}, paths)
	assert.FileExists(t, paths[0])
}

func TestWidthGrowsWithPoints(t *testing.T) {
	assert.Equal(t, minWidth, width(1))
	assert.Greater(t, width(40), minWidth)
}
