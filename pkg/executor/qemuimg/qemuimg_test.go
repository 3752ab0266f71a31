package qemuimg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terabiome/cloudprofile/pkg/executor"
)

func TestCreateOverlay(t *testing.T) {
	dry := executor.NewDryRun(nil)

	err := CreateOverlay(context.Background(), dry, OverlayOptions{
		BackingFile:       "/images/ubuntu.qcow2",
		BackingFileFormat: "qcow2",
		OutputFile:        "/images/node1.qcow2",
	})
	require.NoError(t, err)

	err = CreateOverlay(context.Background(), dry, OverlayOptions{
		BackingFile:       "/images/ubuntu.qcow2",
		BackingFileFormat: "qcow2",
		OutputFile:        "/images/node2.qcow2",
		SizeGB:            40,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"qemu-img create -b /images/ubuntu.qcow2 -F qcow2 -f qcow2 /images/node1.qcow2",
		"qemu-img create -b /images/ubuntu.qcow2 -F qcow2 -f qcow2 /images/node2.qcow2 40G",
	}, dry.Commands())
}

func TestCreateBlank(t *testing.T) {
	dry := executor.NewDryRun(nil)

	require.NoError(t, CreateBlank(context.Background(), dry, "/images/node1-bs.qcow2", 20))
	assert.Equal(t, []string{"qemu-img create -f qcow2 /images/node1-bs.qcow2 20G"}, dry.Commands())

	require.Error(t, CreateBlank(context.Background(), dry, "/images/bad.qcow2", 0))
}
