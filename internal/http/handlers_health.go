package httpx

import (
	"net/http"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
)

type healthResponse struct {
	Status string `json:"status"`
	// Ready is false until the startup session check has settled.
	Ready bool `json:"ready"`
}

// healthHandler reports liveness. It never exposes who is signed in.
func healthHandler(auth StateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Ready: true}
		if auth != nil {
			resp.Ready = auth.State().Phase != domainauth.PhaseInitializing
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
