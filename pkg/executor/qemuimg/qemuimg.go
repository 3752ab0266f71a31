package qemuimg

import (
	"context"
	"fmt"

	"github.com/terabiome/cloudprofile/pkg/executor"
)

// OverlayOptions describes a copy-on-write image layered over a base image.
type OverlayOptions struct {
	BackingFile       string
	BackingFileFormat string
	OutputFile        string
	SizeGB            int // 0 keeps the backing file's size
}

func CreateOverlay(ctx context.Context, exec executor.Executor, opts OverlayOptions) error {
	args := []string{
		"create",
		"-b", opts.BackingFile,
		"-F", opts.BackingFileFormat,
		"-f", "qcow2",
		opts.OutputFile,
	}
	if opts.SizeGB > 0 {
		args = append(args, fmt.Sprintf("%dG", opts.SizeGB))
	}

	result, err := executor.RunAndCapture(ctx, exec, "qemu-img", args...)
	if err != nil {
		return fmt.Errorf("qemu-img create overlay failed: %w\nstdout: %s\nstderr: %s",
			err, result.Stdout, result.Stderr)
	}

	return nil
}

// CreateBlank creates an empty qcow2 image of sizeGB gigabytes.
func CreateBlank(ctx context.Context, exec executor.Executor, outputFile string, sizeGB int) error {
	if sizeGB < 1 {
		return fmt.Errorf("blank image %s needs a positive size, got %d", outputFile, sizeGB)
	}

	result, err := executor.RunAndCapture(ctx, exec, "qemu-img", "create", "-f", "qcow2", outputFile, fmt.Sprintf("%dG", sizeGB))
	if err != nil {
		return fmt.Errorf("qemu-img create failed: %w\nstdout: %s\nstderr: %s",
			err, result.Stdout, result.Stderr)
	}

	return nil
}
