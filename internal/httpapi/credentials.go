// path: internal/httpapi/credentials.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
	"github.com/techappsUT/social-scheduler/pkg/response"
)

// setCredentials implements spec.md §6.1 setCredentials(platform, map):
// verifyCredentials() is called against the live platform before the
// values are ever persisted, so a typo'd token never reaches storage.
func (s *Server) setCredentials(w http.ResponseWriter, r *http.Request) {
	platformName := store.Platform(chi.URLParam(r, "platform"))

	adapter, err := s.registry.Get(platformName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "unsupported platform", err)
		return
	}

	var req setCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "validation_error", "fields": formatValidationErrors(err)})
		return
	}

	cred := platform.Credential{AccountRef: store.DefaultAccountRef, Values: req.Values}

	if err := adapter.VerifyCredentials(r.Context(), cred); err != nil {
		var perr *platform.Error
		if errors.As(err, &perr) && perr.Code == platform.ErrCodeAuthFailed {
			response.Error(w, http.StatusUnprocessableEntity, "credentials rejected by platform", perr)
			return
		}
		response.Error(w, http.StatusBadGateway, "could not verify credentials", err)
		return
	}

	if err := s.creds.Store(r.Context(), platformName, cred); err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to store credentials", err)
		return
	}

	response.Success(w, map[string]string{"platform": string(platformName), "status": "verified"})
}

func (s *Server) listConfiguredPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.store.ListConfiguredPlatforms(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to list configured platforms", err)
		return
	}
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	response.Success(w, out)
}
