package service

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/terabiome/cloudprofile/pkg/bootstep"
	"github.com/terabiome/cloudprofile/pkg/constants"
)

var (
	ErrInvalidNodeCount          = errors.New("node count must be a positive integer")
	ErrInvalidTempFileSystemSize = errors.New("temporary file system size must be a non-negative integer")
	ErrTempStorageNotOffered     = errors.New("temporary storage is not offered by this profile")
)

// DefaultMaxNodeCount applies when ProfileConfig.MaxNodeCount is not set.
const DefaultMaxNodeCount = 1000

// ProfileConfig holds the fixed, non-parameterized choices baked into a profile.
// It is passed by value and never mutated by the service.
type ProfileConfig struct {
	HardwareType         string
	DiskImage            string
	RepositoryURL        string
	RepositoryPath       string
	EntryScript          string
	BootShell            string
	BlockStoreMountPoint string
	OfferTempStorage     bool
	MaxNodeCount         int // 0 means DefaultMaxNodeCount
	Description          string
	Instructions         string
}

// Source returns the repository description used to render boot steps.
func (c ProfileConfig) Source() bootstep.Source {
	return bootstep.Source{
		RepositoryURL:  c.RepositoryURL,
		RepositoryPath: c.RepositoryPath,
		EntryScript:    c.EntryScript,
	}
}

// NodeLimit is the largest node count a single request may ask for.
func (c ProfileConfig) NodeLimit() int {
	if c.MaxNodeCount < 1 {
		return DefaultMaxNodeCount
	}
	return c.MaxNodeCount
}

// GenerateParams contains transport-agnostic parameters for generating a profile request.
type GenerateParams struct {
	NodeCount          int
	TempFileSystemSize int // GB, 0 disables the block store
}

// DefaultGenerateParams returns the portal defaults.
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		NodeCount:          1,
		TempFileSystemSize: 0,
	}
}

// Validate reports every problem with the parameters at once.
func (p GenerateParams) Validate(profile ProfileConfig) error {
	var result *multierror.Error

	if p.NodeCount < 1 {
		result = multierror.Append(result, fmt.Errorf("%w: got %d", ErrInvalidNodeCount, p.NodeCount))
	} else if limit := profile.NodeLimit(); p.NodeCount > limit {
		result = multierror.Append(result, fmt.Errorf("%w: got %d, this profile allows at most %d", ErrInvalidNodeCount, p.NodeCount, limit))
	}

	if p.TempFileSystemSize < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: got %d", ErrInvalidTempFileSystemSize, p.TempFileSystemSize))
	} else if p.TempFileSystemSize > 0 && !profile.OfferTempStorage {
		result = multierror.Append(result, fmt.Errorf("%w: requested %dGB", ErrTempStorageNotOffered, p.TempFileSystemSize))
	}

	return result.ErrorOrNil()
}

// ParameterDefinition describes one portal parameter of the profile.
type ParameterDefinition struct {
	Name        string
	Type        string
	Default     int
	Min         int
	Max         int // 0 when unbounded
	Description string
}

// ParameterDefinitions lists the parameters the profile accepts. The storage parameter is
// only listed when the profile offers temporary storage.
func ParameterDefinitions(profile ProfileConfig, defaults GenerateParams) []ParameterDefinition {
	defs := []ParameterDefinition{
		{
			Name:        constants.ParameterNodeCount,
			Type:        "integer",
			Default:     defaults.NodeCount,
			Min:         1,
			Max:         profile.NodeLimit(),
			Description: "Number of nodes",
		},
	}

	if profile.OfferTempStorage {
		defs = append(defs, ParameterDefinition{
			Name:        constants.ParameterTempFileSystemSize,
			Type:        "integer",
			Default:     defaults.TempFileSystemSize,
			Min:         0,
			Description: fmt.Sprintf("Temporary file system size in GB mounted at %s on each node, 0 for none", profile.BlockStoreMountPoint),
		})
	}

	return defs
}
