package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/terabiome/cloudprofile/internal/adapter"
	"github.com/terabiome/cloudprofile/internal/api"
	"github.com/terabiome/cloudprofile/internal/service"
	"github.com/terabiome/cloudprofile/pkg/rspec"
)

// Profile handles profile-related HTTP requests
type Profile struct {
	profileService *service.ProfileService
	defaults       service.GenerateParams
	logger         *slog.Logger
}

// NewProfile creates a new Profile handler
func NewProfile(profileService *service.ProfileService, defaults service.GenerateParams, logger *slog.Logger) *Profile {
	return &Profile{
		profileService: profileService,
		defaults:       defaults,
		logger:         logger.With(slog.String("component", "handler")),
	}
}

// Generate handles GET and POST /profile/generate requests. GET reads portal parameters from
// the query string, POST from a JSON body.
func (h *Profile) Generate(writer http.ResponseWriter, request *http.Request) {
	format, err := rspec.ParseFormat(request.URL.Query().Get("format"))
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Message: "no matching serializer to format request",
			Error:   err.Error(),
		})
		return
	}

	var params service.GenerateParams
	if request.Method == http.MethodPost {
		var generateRequest api.GenerateProfileRequest
		if err := parseBody(writer, request, &generateRequest, false); err != nil {
			return
		}
		params = adapter.AdaptGenerateProfile(generateRequest, h.defaults)
	} else {
		params, err = adapter.ParseGenerateQuery(request.URL.Query(), h.defaults)
		if err != nil {
			writeResult(writer, http.StatusBadRequest, GenericResponse{
				Message: "invalid profile parameters",
				Error:   err.Error(),
			})
			return
		}
	}

	document, err := h.profileService.Generate(request.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		message := "failed to generate profile"
		if isValidationError(err) {
			status = http.StatusBadRequest
			message = "invalid profile parameters"
		}
		writeResult(writer, status, GenericResponse{
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	output, err := rspec.Encode(document, format)
	if err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Message: "could not serialize data",
			Error:   err.Error(),
		})
		return
	}

	h.logger.Debug("served profile",
		slog.String("request_id", RequestID(request.Context())),
		slog.Int("nodes", len(document.Nodes)),
		slog.String("format", string(format)),
	)
	writeBytes(writer, http.StatusOK, format.ContentType(), output)
}

// Parameters handles GET /profile/parameters requests
func (h *Profile) Parameters(writer http.ResponseWriter, request *http.Request) {
	defs := service.ParameterDefinitions(h.profileService.Profile(), h.defaults)

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptParameterDefinitions(defs),
		Message: "retrieved profile parameters successfully",
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidNodeCount) ||
		errors.Is(err, service.ErrInvalidTempFileSystemSize) ||
		errors.Is(err, service.ErrTempStorageNotOffered)
}
