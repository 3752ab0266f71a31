package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/terabiome/cloudprofile/pkg/bootstep"
	"github.com/terabiome/cloudprofile/pkg/rspec"
)

// ProfileService turns profile parameters into CloudLab request documents.
type ProfileService struct {
	profile  ProfileConfig
	renderer *bootstep.Renderer
	logger   *slog.Logger

	generateCounter  metric.Int64Counter
	generateDuration metric.Float64Histogram
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profile ProfileConfig, renderer *bootstep.Renderer, logger *slog.Logger) *ProfileService {
	meter := otel.Meter("cloudprofile/service")

	generateCounter, err := meter.Int64Counter(
		"cloudprofile.profile.generate",
		metric.WithDescription("Number of profile generate operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create generateCounter metric", slog.String("error", err.Error()))
	}

	generateDuration, err := meter.Float64Histogram(
		"cloudprofile.profile.generate.duration",
		metric.WithDescription("Duration of profile generate operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create generateDuration metric", slog.String("error", err.Error()))
	}

	return &ProfileService{
		profile:          profile,
		renderer:         renderer,
		logger:           logger.With(slog.String("service", "profile")),
		generateCounter:  generateCounter,
		generateDuration: generateDuration,
	}
}

// Profile returns the fixed configuration the service generates from.
func (s *ProfileService) Profile() ProfileConfig {
	return s.profile
}

// Generate builds a request with params.NodeCount identical nodes. Parameters are validated
// before any node is built, so an error never comes with a partial document.
func (s *ProfileService) Generate(ctx context.Context, params GenerateParams) (*rspec.Request, error) {
	tracer := otel.Tracer("cloudprofile/service")
	ctx, span := tracer.Start(ctx, "GenerateProfile")
	defer span.End()

	span.SetAttributes(
		attribute.Int("profile.node_count", params.NodeCount),
		attribute.Int("profile.temp_filesystem_size_gb", params.TempFileSystemSize),
	)

	startTime := time.Now()

	request, err := s.generate(params)
	if err != nil {
		s.logger.Error("failed to generate profile",
			slog.Int("node_count", params.NodeCount),
			slog.Int("temp_filesystem_size_gb", params.TempFileSystemSize),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ctx, "failed", startTime)
		return nil, err
	}

	s.logger.Info("generated profile",
		slog.Int("nodes", len(request.Nodes)),
		slog.Int("temp_filesystem_size_gb", params.TempFileSystemSize),
		slog.String("hardware_type", s.profile.HardwareType),
	)
	s.record(ctx, "success", startTime)

	return request, nil
}

func (s *ProfileService) generate(params GenerateParams) (*rspec.Request, error) {
	if err := params.Validate(s.profile); err != nil {
		return nil, fmt.Errorf("invalid profile parameters: %w", err)
	}

	commands, err := s.renderer.RenderSequence(s.profile.Source())
	if err != nil {
		return nil, fmt.Errorf("could not render boot sequence: %w", err)
	}

	request := rspec.NewRequest()
	request.SetTour(s.profile.Description, s.profile.Instructions)
	request.Nodes = make([]rspec.Node, 0, params.NodeCount)

	for i := 1; i <= params.NodeCount; i++ {
		name := NodeName(i)
		node := rspec.NewRawPC(name, s.profile.HardwareType, s.profile.DiskImage)

		if params.TempFileSystemSize > 0 {
			node.BlockStore = rspec.NewBlockStore(BlockStoreName(name), s.profile.BlockStoreMountPoint, params.TempFileSystemSize)
		}

		for _, cmd := range commands {
			node.AddService(cmd.Shell, cmd.Command)
		}

		s.logger.Debug("added node",
			slog.String("node", name),
			slog.Bool("blockstore", node.BlockStore != nil),
		)
		request.Nodes = append(request.Nodes, node)
	}

	return request, nil
}

func (s *ProfileService) record(ctx context.Context, status string, startTime time.Time) {
	if s.generateCounter != nil {
		s.generateCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
		))
	}
	if s.generateDuration != nil {
		s.generateDuration.Record(ctx, time.Since(startTime).Seconds(), metric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// NodeName is the client id of the i-th node, counting from 1.
func NodeName(ordinal int) string {
	return fmt.Sprintf("node%d", ordinal)
}

// BlockStoreName derives a block store name that is unique per node.
func BlockStoreName(nodeName string) string {
	return nodeName + "-bs"
}
