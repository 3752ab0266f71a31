package executor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "qemu-img info /tmp/a.qcow2", CommandString("qemu-img", []string{"info", "/tmp/a.qcow2"}))
	assert.Equal(t, `mkisofs -volid "" "/tmp/with space"`, CommandString("mkisofs", []string{"-volid", "", "/tmp/with space"}))
	assert.Equal(t, "true", CommandString("true", nil))
}

func TestDryRun_RecordsAndPrints(t *testing.T) {
	var out bytes.Buffer
	dry := NewDryRun(&out)

	code, err := dry.Execute(context.Background(), nil, nil, "mkdir", "-p", "/var/lib/libvirt/images")
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	_, err = dry.Execute(context.Background(), nil, nil, "qemu-img", "create", "-f", "qcow2", "/x.qcow2", "20G")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mkdir -p /var/lib/libvirt/images",
		"qemu-img create -f qcow2 /x.qcow2 20G",
	}, dry.Commands())
	assert.Equal(t, "mkdir -p /var/lib/libvirt/images\nqemu-img create -f qcow2 /x.qcow2 20G\n", out.String())
	assert.Equal(t, "dry-run", dry.Name())
}

func TestRunAndCapture_DryRun(t *testing.T) {
	result, err := RunAndCapture(context.Background(), NewDryRun(nil), "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.Stdout)
}

func TestLocal_Execute(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	local := NewLocal(slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := RunAndCapture(context.Background(), local, "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)

	result, err = RunAndCapture(context.Background(), local, "sh", "-c", "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
}
