package readiness

import (
	"context"
	"net/http"
	"time"
)

// httpProbeTimeout bounds a single confidence request.
const httpProbeTimeout = 3 * time.Second

// ConfirmHTTP probes the site URL until any HTTP response arrives. Any
// status code counts; the point is confirming Apache answers on the
// published port, not that the page renders. Returns false when every
// attempt failed, which callers treat as a warning, never a gate failure.
func (g *Gate) ConfirmHTTP(ctx context.Context, url string) bool {
	client := &http.Client{
		Timeout: httpProbeTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// A redirect is already proof the server answered
			return http.ErrUseLastResponse
		},
	}

	for attempt := 1; attempt <= g.budgets.HTTPAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			g.logger.Debug("confidence check request invalid", "url", url, "error", err)
			return false
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			g.logger.Debug("site answered", "url", url, "status", resp.StatusCode, "attempt", attempt)
			return true
		}
		g.logger.Debug("site not answering yet", "url", url, "attempt", attempt, "error", err)

		if attempt == g.budgets.HTTPAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(g.budgets.HTTPInterval):
		}
	}
	return false
}
