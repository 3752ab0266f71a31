package adapter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/terabiome/cloudprofile/internal/api"
	"github.com/terabiome/cloudprofile/internal/service"
	"github.com/terabiome/cloudprofile/pkg/constants"
)

// AdaptGenerateProfile converts the API contract to service params, filling omitted fields
// from defaults.
func AdaptGenerateProfile(req api.GenerateProfileRequest, defaults service.GenerateParams) service.GenerateParams {
	params := defaults
	if req.NodeCount != nil {
		params.NodeCount = *req.NodeCount
	}
	if req.TempFileSystemSize != nil {
		params.TempFileSystemSize = *req.TempFileSystemSize
	}
	return params
}

// ParseGenerateQuery reads portal parameters from a query string. Values that are not
// integers are rejected with the matching service validation error.
func ParseGenerateQuery(values url.Values, defaults service.GenerateParams) (service.GenerateParams, error) {
	params := defaults
	var result *multierror.Error

	if raw, ok := lookup(values, constants.ParameterNodeCount, "node_count"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %q is not an integer", service.ErrInvalidNodeCount, raw))
		} else {
			params.NodeCount = n
		}
	}

	if raw, ok := lookup(values, constants.ParameterTempFileSystemSize, "temp_filesystem_size_gb"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %q is not an integer", service.ErrInvalidTempFileSystemSize, raw))
		} else {
			params.TempFileSystemSize = n
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return service.GenerateParams{}, err
	}
	return params, nil
}

func lookup(values url.Values, keys ...string) (string, bool) {
	for _, key := range keys {
		if values.Has(key) {
			return strings.TrimSpace(values.Get(key)), true
		}
	}
	return "", false
}

func AdaptParameterDefinitions(defs []service.ParameterDefinition) api.ParametersResponse {
	result := make([]api.ParameterDefinition, len(defs))
	for i, d := range defs {
		result[i] = api.ParameterDefinition{
			Name:        d.Name,
			Type:        d.Type,
			Default:     d.Default,
			Min:         d.Min,
			Max:         d.Max,
			Description: d.Description,
		}
	}
	return api.ParametersResponse{Parameters: result}
}
