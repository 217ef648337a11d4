package routing

import (
	"net/http"
	"strconv"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// ApplyHeaders sets the routing-decision response headers documented for
// the HTTP boundary: X-Provider, X-Complexity-Score, X-Routing-Method,
// X-Tier, X-Model, plus the threshold/agentic/cost-optimized extras.
func ApplyHeaders(h http.Header, d models.RoutingDecision) {
	h.Set("X-Provider", d.Provider)
	h.Set("X-Model", d.Model)
	h.Set("X-Tier", string(d.Tier))
	h.Set("X-Routing-Method", string(d.Method))
	h.Set("X-Routing-Reason", d.Reason)
	h.Set("X-Complexity-Score", strconv.FormatFloat(d.Score, 'f', 1, 64))
	h.Set("X-Complexity-Threshold", strconv.FormatFloat(d.Threshold, 'f', 1, 64))
	if d.Agentic != "" {
		h.Set("X-Agentic", d.Agentic)
	}
	if d.CostOptimized {
		h.Set("X-Cost-Optimized", "true")
	}
}
