package main

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terabiome/cloudprofile/internal/config"
	"github.com/terabiome/cloudprofile/internal/service"
	"github.com/terabiome/cloudprofile/pkg/rspec"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	app := newApplication(&stdout, io.Discard)
	err := app.cli(context.Background()).Run(append([]string{"cloudprofile"}, args...))
	return stdout.String(), err
}

func decodeRequest(t *testing.T, body string) rspec.Request {
	t.Helper()

	var req rspec.Request
	require.NoError(t, xml.Unmarshal([]byte(body), &req))
	return req
}

func TestGenerate_Defaults(t *testing.T) {
	out, err := runApp(t, "generate")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	req := decodeRequest(t, out)
	require.Len(t, req.Nodes, 1)
	assert.Equal(t, "node1", req.Nodes[0].ClientID)
	assert.NotContains(t, out, "blockstore")
}

func TestGenerate_UnsetFlagUsesConfiguredDefault(t *testing.T) {
	t.Setenv("CLOUDPROFILE_DEFAULT_NODE_COUNT", "3")

	out, err := runApp(t, "generate")
	require.NoError(t, err)
	assert.Len(t, decodeRequest(t, out).Nodes, 3)

	out, err = runApp(t, "generate", "-n", "2")
	require.NoError(t, err)
	assert.Len(t, decodeRequest(t, out).Nodes, 2)
}

func TestGenerate_InvalidInputWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero nodes", []string{"generate", "-n", "0"}, "node count must be a positive integer"},
		{"negative nodes", []string{"generate", "-n", "-3"}, "node count must be a positive integer"},
		{"nodes above limit", []string{"generate", "-n", "1001"}, "at most 1000"},
		{"negative storage", []string{"generate", "-s", "-1"}, "non-negative integer"},
		{"non-integer nodes", []string{"generate", "-n", "1.5"}, "invalid usage"},
		{"unknown format", []string{"generate", "-f", "yaml"}, "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runApp(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, out)
		})
	}
}

func TestGenerate_ZeroNodesIsNotDefaulted(t *testing.T) {
	_, err := runApp(t, "generate", "-n", "0")
	assert.ErrorIs(t, err, service.ErrInvalidNodeCount)
}

func TestGenerate_JSONWithStorage(t *testing.T) {
	out, err := runApp(t, "generate", "-n", "2", "-s", "20", "-f", "json")
	require.NoError(t, err)

	var doc struct {
		Nodes []struct {
			ClientID   string `json:"client_id"`
			BlockStore *struct {
				Name string `json:"name"`
				Size string `json:"size"`
			} `json:"blockstore"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Nodes, 2)
	require.NotNil(t, doc.Nodes[1].BlockStore)
	assert.Equal(t, "node2-bs", doc.Nodes[1].BlockStore.Name)
	assert.Equal(t, "20GB", doc.Nodes[1].BlockStore.Size)
}

func TestGenerate_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.xml")

	out, err := runApp(t, "generate", "-n", "3", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decodeRequest(t, string(content)).Nodes, 3)
}

func TestGenerate_InvalidInputLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.xml")

	_, err := runApp(t, "generate", "-n", "0", "-o", path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParameters(t *testing.T) {
	out, err := runApp(t, "parameters")
	require.NoError(t, err)

	var resp struct {
		Parameters []struct {
			Name string `json:"name"`
			Max  int    `json:"max"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Parameters, 2)
	assert.Equal(t, "nodeCount", resp.Parameters[0].Name)
	assert.Equal(t, 1000, resp.Parameters[0].Max)
}

func TestRehearse_DryRun(t *testing.T) {
	imageDir := t.TempDir()
	outDir := t.TempDir()
	t.Setenv("CLOUDPROFILE_REHEARSAL_IMAGE_DIR", imageDir)

	out, err := runApp(t, "rehearse", "-n", "2", "-s", "10", "--out-dir", outDir, "--prepare", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(outDir, "node1", "domain.xml"))
	assert.Contains(t, out, filepath.Join(outDir, "node2", "domain.xml"))
	assert.Contains(t, out, "qemu-img create -f qcow2 "+filepath.Join(imageDir, "node2-bs.qcow2")+" 10G")
	assert.Contains(t, out, "mkisofs -output "+filepath.Join(imageDir, "node1-seed.iso"))
}

func TestRehearse_InvalidInputWritesNothing(t *testing.T) {
	outDir := t.TempDir()

	out, err := runApp(t, "rehearse", "-n", "0", "--out-dir", outDir)
	require.Error(t, err)
	assert.Empty(t, out)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type fakeFlags map[string]int

func (f fakeFlags) IsSet(name string) bool {
	_, ok := f[name]
	return ok
}

func (f fakeFlags) Int(name string) int {
	return f[name]
}

func TestGenerateParams(t *testing.T) {
	cfg := &config.Config{DefaultNodeCount: 4, DefaultTempFileSystemSize: 8}

	assert.Equal(t, service.GenerateParams{NodeCount: 4, TempFileSystemSize: 8}, generateParams(fakeFlags{}, cfg))
	assert.Equal(t,
		service.GenerateParams{NodeCount: 0, TempFileSystemSize: 8},
		generateParams(fakeFlags{"node-count": 0}, cfg),
	)
	assert.Equal(t,
		service.GenerateParams{NodeCount: 4, TempFileSystemSize: 0},
		generateParams(fakeFlags{"temp-filesystem-size": 0}, cfg),
	)
}
