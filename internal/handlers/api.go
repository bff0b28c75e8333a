package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/scout/internal/common"
)

var startTime = time.Now()

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"version":    common.GetVersion(),
		"uptime":     time.Since(startTime).Round(time.Second).String(),
		"goroutines": common.GetGoroutineCount(),
	})
}

// VersionHandler handles GET /version
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
