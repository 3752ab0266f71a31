package rehearsal

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/terabiome/cloudprofile/pkg/executor"
	"github.com/terabiome/cloudprofile/pkg/executor/fileops"
	"github.com/terabiome/cloudprofile/pkg/executor/mkisofs"
	"github.com/terabiome/cloudprofile/pkg/executor/qemuimg"
)

// Prepare creates the disks and seed ISO that rendered domains refer to. If any node fails,
// the images already created for that node are removed before the error is returned.
func (m *Manager) Prepare(ctx context.Context, exec executor.Executor, artifacts []NodeArtifacts) error {
	backingFileFormat, err := imageFormat(m.opts.BaseImage)
	if err != nil {
		return err
	}

	if err := fileops.CreateDirectory(ctx, exec, m.opts.ImageDir); err != nil {
		return err
	}

	for _, node := range artifacts {
		if err := m.prepareNode(ctx, exec, backingFileFormat, node); err != nil {
			return fmt.Errorf("could not prepare %s: %w", node.Name, err)
		}
	}

	m.logger.Info("prepared rehearsal images",
		slog.Int("nodes", len(artifacts)),
		slog.String("executor", exec.Name()),
	)
	return nil
}

func (m *Manager) prepareNode(ctx context.Context, exec executor.Executor, backingFileFormat string, node NodeArtifacts) (err error) {
	var created []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range created {
			if rmErr := fileops.RemoveFile(context.WithoutCancel(ctx), exec, p); rmErr != nil {
				m.logger.Warn("failed to clean up rehearsal image",
					slog.String("path", p),
					slog.String("error", rmErr.Error()),
				)
			}
		}
	}()

	m.logger.Debug("creating root overlay",
		slog.String("path", node.RootDiskPath),
		slog.String("base", m.opts.BaseImage),
	)
	if err = qemuimg.CreateOverlay(ctx, exec, qemuimg.OverlayOptions{
		BackingFile:       m.opts.BaseImage,
		BackingFileFormat: backingFileFormat,
		OutputFile:        node.RootDiskPath,
	}); err != nil {
		return err
	}
	created = append(created, node.RootDiskPath)

	if node.BlockStorePath != "" {
		m.logger.Debug("creating block store disk",
			slog.String("path", node.BlockStorePath),
			slog.Int("size_gb", node.BlockStoreGB),
		)
		if err = qemuimg.CreateBlank(ctx, exec, node.BlockStorePath, node.BlockStoreGB); err != nil {
			return err
		}
		created = append(created, node.BlockStorePath)
	}

	if err = mkisofs.CreateISO(ctx, exec, mkisofs.ISOOptions{
		OutputPath: node.SeedISOPath,
		VolumeID:   mkisofs.CloudInitVolumeID,
		Files:      []string{node.UserDataPath, node.MetaDataPath},
	}); err != nil {
		return err
	}

	return nil
}

func imageFormat(image string) (string, error) {
	switch ext := strings.ToLower(path.Ext(image)); ext {
	case ".qcow2":
		return "qcow2", nil
	case ".img", ".raw":
		return "raw", nil
	default:
		return "", fmt.Errorf("unsupported base image format: %q", ext)
	}
}
