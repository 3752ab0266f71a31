package mkisofs

import (
	"context"
	"fmt"

	"github.com/terabiome/cloudprofile/pkg/executor"
)

// CloudInitVolumeID is the volume label cloud-init's NoCloud datasource looks for.
const CloudInitVolumeID = "cidata"

type ISOOptions struct {
	OutputPath string
	VolumeID   string
	Files      []string
}

func CreateISO(ctx context.Context, exec executor.Executor, opts ISOOptions) error {
	if len(opts.Files) == 0 {
		return fmt.Errorf("no files to pack into %s", opts.OutputPath)
	}

	args := []string{
		"-output", opts.OutputPath,
		"-volid", opts.VolumeID,
		"-joliet",
		"-rock",
	}
	args = append(args, opts.Files...)

	result, err := executor.RunAndCapture(ctx, exec, "mkisofs", args...)
	if err != nil {
		return fmt.Errorf("mkisofs failed: %w\nstdout: %s\nstderr: %s",
			err, result.Stdout, result.Stderr)
	}

	return nil
}
