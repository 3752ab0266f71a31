package api

// GenerateProfileRequest contains the portal parameters for generating a profile request.
// Omitted fields fall back to the configured defaults.
type GenerateProfileRequest struct {
	NodeCount          *int `json:"node_count,omitempty"`
	TempFileSystemSize *int `json:"temp_filesystem_size_gb,omitempty"`
}

// ParameterDefinition describes one parameter the profile accepts.
type ParameterDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     int    `json:"default"`
	Min         int    `json:"min"`
	Max         int    `json:"max,omitempty"`
	Description string `json:"description"`
}

// ParametersResponse lists the parameters of the profile.
type ParametersResponse struct {
	Parameters []ParameterDefinition `json:"parameters"`
}
