package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/terabiome/cloudprofile/internal/adapter"
	"github.com/terabiome/cloudprofile/internal/api"
	"github.com/terabiome/cloudprofile/internal/config"
	"github.com/terabiome/cloudprofile/internal/service"
	"github.com/terabiome/cloudprofile/pkg/bootstep"
	"github.com/terabiome/cloudprofile/pkg/constants"
	"github.com/terabiome/cloudprofile/pkg/logger"
	"github.com/terabiome/cloudprofile/pkg/rspec"
	"github.com/terabiome/cloudprofile/pkg/telemetry"
	"github.com/terabiome/cloudprofile/pkg/templator"
)

// application holds what the commands share once the global flags are parsed.
// stdout carries generated documents only; logs and telemetry go to stderr.
type application struct {
	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	log *slog.Logger
	tel *telemetry.Telemetry
}

func newApplication(stdout, stderr io.Writer) *application {
	return &application{
		stdout: stdout,
		stderr: stderr,
		log:    slog.New(slog.NewTextHandler(stderr, nil)),
	}
}

// flagSource is the part of *cli.Context the parameter flags are read from.
type flagSource interface {
	IsSet(name string) bool
	Int(name string) int
}

func parameterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "node-count",
			Aliases: []string{"n"},
			Usage:   "Number of nodes (nodeCount)",
		},
		&cli.IntFlag{
			Name:    "temp-filesystem-size",
			Aliases: []string{"s"},
			Usage:   "Temporary file system size per node in GB, 0 for none (tempFileSystemSize)",
		},
	}
}

// usageError returns flag errors instead of printing usage, so bad input leaves stdout empty.
func usageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("invalid usage: %w", err)
}

func (a *application) cli(ctx context.Context) *cli.App {
	return &cli.App{
		Name:                 "cloudprofile",
		Usage:                "Generate CloudLab profile requests",
		EnableBashCompletion: true,
		Writer:               a.stdout,
		ErrWriter:            a.stderr,
		OnUsageError:         usageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file (yaml, json or toml)",
				EnvVars: []string{"CLOUDPROFILE_CONFIG"},
			},
		},
		Before: func(cliCtx *cli.Context) error {
			return a.setup(cliCtx.String("config"))
		},
		After: func(cliCtx *cli.Context) error {
			a.shutdown()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:         "generate",
				Usage:        "Print the profile request for the given parameters",
				OnUsageError: usageError,
				Flags: append(parameterFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: xml or json",
						Value:   string(rspec.FormatXML),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to file instead of stdout",
					},
				),
				Action: func(cliCtx *cli.Context) error {
					return a.generate(ctx, generateParams(cliCtx, a.cfg), cliCtx.String("format"), cliCtx.String("output"))
				},
			},
			{
				Name:  "parameters",
				Usage: "Print the parameters the profile accepts as JSON",
				Action: func(cliCtx *cli.Context) error {
					return a.parameters()
				},
			},
			{
				Name:         "rehearse",
				Usage:        "Render libvirt domains and cloud-init seeds to try the profile on a local KVM host",
				OnUsageError: usageError,
				Flags: append(parameterFlags(),
					&cli.StringFlag{
						Name:     "out-dir",
						Usage:    "Directory for domain XML and cloud-init files",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "prepare",
						Usage: "Also create disk images and seed ISOs with qemu-img and mkisofs",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the preparation commands instead of running them",
					},
				),
				Action: func(cliCtx *cli.Context) error {
					return a.rehearse(ctx, rehearsalOptions{
						params:  generateParams(cliCtx, a.cfg),
						outDir:  cliCtx.String("out-dir"),
						prepare: cliCtx.Bool("prepare"),
						dryRun:  cliCtx.Bool("dry-run"),
					})
				},
			},
			{
				Name:  "server",
				Usage: "Start HTTP API server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Aliases: []string{"a"},
						Usage:   "Server address",
						Value:   ":8080",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					return runServer(ctx, a.cfg, a.log, cliCtx.String("address"))
				},
			},
		},
	}
}

func (a *application) setup(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg

	a.log = logger.NewWithWriter(a.stderr, cfg.LogLevel, cfg.LogFormat)
	a.log.Debug("cloudprofile starting",
		slog.String("log_level", cfg.LogLevel),
		slog.String("log_format", cfg.LogFormat),
		slog.Bool("telemetry_enabled", cfg.TelemetryEnabled),
	)

	if cfg.TelemetryEnabled {
		a.tel, err = telemetry.Initialize("cloudprofile", a.stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		a.log.Debug("telemetry initialized")
	}
	return nil
}

func (a *application) shutdown() {
	if a.tel == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.tel.Shutdown(shutdownCtx); err != nil {
		a.log.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
	}
}

// generate writes the encoded request to outputPath, or to stdout when it is empty.
// Nothing is written unless generation and encoding both succeed.
func (a *application) generate(ctx context.Context, params service.GenerateParams, formatName, outputPath string) error {
	format, err := rspec.ParseFormat(formatName)
	if err != nil {
		return err
	}

	profileService, err := initProfileService(a.cfg, a.log)
	if err != nil {
		return err
	}

	request, err := profileService.Generate(ctx, params)
	if err != nil {
		return fmt.Errorf("unable to generate profile request: %w", err)
	}

	data, err := rspec.Encode(request, format)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	a.log.Info("wrote profile request", slog.String("path", outputPath))
	return nil
}

func (a *application) parameters() error {
	defs := service.ParameterDefinitions(profileConfig(a.cfg), defaultParams(a.cfg))
	output, err := json.MarshalIndent(adapter.AdaptParameterDefinitions(defs), "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal parameters: %w", err)
	}

	_, err = fmt.Fprintln(a.stdout, string(output))
	return err
}

func profileConfig(cfg *config.Config) service.ProfileConfig {
	return service.ProfileConfig{
		HardwareType:         cfg.HardwareType,
		DiskImage:            cfg.DiskImage,
		RepositoryURL:        cfg.RepositoryURL,
		RepositoryPath:       cfg.RepositoryPath,
		EntryScript:          cfg.EntryScript,
		BootShell:            cfg.BootShell,
		BlockStoreMountPoint: cfg.BlockStoreMountPoint,
		OfferTempStorage:     cfg.OfferTempStorage,
		MaxNodeCount:         cfg.MaxNodeCount,
		Description:          cfg.ProfileDescription,
		Instructions:         cfg.ProfileInstructions,
	}
}

func defaultParams(cfg *config.Config) service.GenerateParams {
	return service.GenerateParams{
		NodeCount:          cfg.DefaultNodeCount,
		TempFileSystemSize: cfg.DefaultTempFileSystemSize,
	}
}

// generateParams applies only the flags the user set over the configured defaults.
func generateParams(flags flagSource, cfg *config.Config) service.GenerateParams {
	var req api.GenerateProfileRequest
	if flags.IsSet("node-count") {
		n := flags.Int("node-count")
		req.NodeCount = &n
	}
	if flags.IsSet("temp-filesystem-size") {
		s := flags.Int("temp-filesystem-size")
		req.TempFileSystemSize = &s
	}
	return adapter.AdaptGenerateProfile(req, defaultParams(cfg))
}

func initProfileService(cfg *config.Config, log *slog.Logger) (*service.ProfileService, error) {
	engine := templator.NewEngine()

	overrides := []struct {
		name string
		path string
	}{
		{constants.TemplateFetchOrUpdate, cfg.FetchTemplatePath},
		{constants.TemplateMakeExecutable, cfg.ChmodTemplatePath},
		{constants.TemplateExecute, cfg.ExecuteTemplatePath},
	}
	for _, o := range overrides {
		if o.path == "" {
			continue
		}
		log.Debug("loading boot step template", slog.String("name", o.name), slog.String("path", o.path))
		if err := engine.LoadTemplate(o.name, o.path); err != nil {
			return nil, err
		}
	}

	renderer, err := bootstep.NewRenderer(engine, cfg.BootShell)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize boot step renderer: %w", err)
	}

	return service.NewProfileService(profileConfig(cfg), renderer, log), nil
}
