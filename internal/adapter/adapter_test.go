package adapter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terabiome/cloudprofile/internal/api"
	"github.com/terabiome/cloudprofile/internal/service"
)

func intPtr(v int) *int { return &v }

func TestAdaptGenerateProfile_Defaults(t *testing.T) {
	defaults := service.GenerateParams{NodeCount: 10, TempFileSystemSize: 0}

	params := AdaptGenerateProfile(api.GenerateProfileRequest{}, defaults)
	assert.Equal(t, defaults, params)
}

func TestAdaptGenerateProfile_Overrides(t *testing.T) {
	req := api.GenerateProfileRequest{NodeCount: intPtr(3), TempFileSystemSize: intPtr(20)}

	params := AdaptGenerateProfile(req, service.DefaultGenerateParams())
	assert.Equal(t, service.GenerateParams{NodeCount: 3, TempFileSystemSize: 20}, params)
}

func TestAdaptGenerateProfile_KeepsInvalidValuesForValidation(t *testing.T) {
	req := api.GenerateProfileRequest{NodeCount: intPtr(0)}

	params := AdaptGenerateProfile(req, service.DefaultGenerateParams())
	assert.Equal(t, 0, params.NodeCount)
}

func TestParseGenerateQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  service.GenerateParams
	}{
		{"empty uses defaults", "", service.GenerateParams{NodeCount: 1}},
		{"portal names", "nodeCount=4&tempFileSystemSize=30", service.GenerateParams{NodeCount: 4, TempFileSystemSize: 30}},
		{"snake case names", "node_count=2&temp_filesystem_size_gb=5", service.GenerateParams{NodeCount: 2, TempFileSystemSize: 5}},
		{"negative passes through", "nodeCount=-3", service.GenerateParams{NodeCount: -3}},
		{"whitespace trimmed", "nodeCount=%207%20", service.GenerateParams{NodeCount: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			params, err := ParseGenerateQuery(values, service.DefaultGenerateParams())
			require.NoError(t, err)
			assert.Equal(t, tt.want, params)
		})
	}
}

func TestParseGenerateQuery_NonInteger(t *testing.T) {
	values := url.Values{}
	values.Set("nodeCount", "2.5")
	values.Set("tempFileSystemSize", "lots")

	_, err := ParseGenerateQuery(values, service.DefaultGenerateParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrInvalidNodeCount)
	assert.ErrorIs(t, err, service.ErrInvalidTempFileSystemSize)
}

func TestAdaptParameterDefinitions(t *testing.T) {
	defs := []service.ParameterDefinition{
		{Name: "nodeCount", Type: "integer", Default: 1, Min: 1, Max: 1000, Description: "Number of nodes"},
	}

	resp := AdaptParameterDefinitions(defs)
	require.Len(t, resp.Parameters, 1)
	assert.Equal(t, api.ParameterDefinition{
		Name:        "nodeCount",
		Type:        "integer",
		Default:     1,
		Min:         1,
		Max:         1000,
		Description: "Number of nodes",
	}, resp.Parameters[0])
}
