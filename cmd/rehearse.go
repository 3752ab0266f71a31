package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terabiome/cloudprofile/internal/rehearsal"
	"github.com/terabiome/cloudprofile/internal/service"
	"github.com/terabiome/cloudprofile/pkg/executor"
)

type rehearsalOptions struct {
	params  service.GenerateParams
	outDir  string
	prepare bool
	dryRun  bool
}

// rehearse prints one domain XML path per node, followed by the preparation commands when
// running dry.
func (a *application) rehearse(ctx context.Context, opts rehearsalOptions) error {
	profileService, err := initProfileService(a.cfg, a.log)
	if err != nil {
		return err
	}

	request, err := profileService.Generate(ctx, opts.params)
	if err != nil {
		return fmt.Errorf("unable to generate profile request: %w", err)
	}

	manager, err := rehearsal.NewManager(rehearsal.Options{
		ImageDir:  a.cfg.RehearsalImageDir,
		BaseImage: a.cfg.RehearsalBaseImage,
		MemoryMB:  a.cfg.RehearsalMemoryMB,
		VCPU:      a.cfg.RehearsalVCPU,
		Bridge:    a.cfg.RehearsalBridge,
	}, a.log)
	if err != nil {
		return err
	}

	artifacts, err := manager.Render(ctx, request, opts.outDir)
	if err != nil {
		return err
	}

	for _, artifact := range artifacts {
		if _, err := fmt.Fprintln(a.stdout, artifact.DomainXMLPath); err != nil {
			return err
		}
	}

	if !opts.prepare {
		return nil
	}

	var exec executor.Executor = executor.NewLocal(a.log)
	if opts.dryRun {
		exec = executor.NewDryRun(a.stdout)
	}

	a.log.Info("preparing rehearsal images",
		slog.Int("nodes", len(artifacts)),
		slog.String("executor", exec.Name()),
	)
	return manager.Prepare(ctx, exec, artifacts)
}
