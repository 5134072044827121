package handlers

import (
	"context"
	"net/http"
	"time"

	"scenecast/internal/httpkit"
)

const serviceName = "scenecast"

// Health reports liveness. With ?deep=true it also checks the renderer,
// the job store and the storage provider.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := map[string]map[string]any{
			"renderer": h.checkRenderer(ctx),
			"jobStore": h.checkJobStore(ctx),
			"storage":  h.checkStorage(),
		}
		health["checks"] = checks
		if v, ok := checks["renderer"]["version"]; ok {
			health["rendererVersion"] = v
		}

		for name, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "check", name, "error", check["error"])
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) checkRenderer(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}
	if h.version == nil {
		result["checked"] = false
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	v, err := h.version.Version(checkCtx)
	if err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	} else {
		result["version"] = v
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkJobStore(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok", "kind": h.storeName}

	pinger, ok := h.store.(Pinger)
	if !ok {
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pinger.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkStorage() map[string]any {
	if h.sp == nil {
		return map[string]any{"status": "ok", "provider": "none"}
	}
	return map[string]any{"status": "ok", "provider": h.sp.Provider()}
}
