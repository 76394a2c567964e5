package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Check probes one dependency a daemon needs to do useful work. A nil
// error means the dependency can serve.
type Check func(ctx context.Context) error

// Postgres pings the pool backing the task and router-profile stores.
func Postgres(pool *pgxpool.Pool) Check {
	return func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("store pool not configured")
		}
		return pool.Ping(ctx)
	}
}

// Nsqd probes nsqd's ping endpoint on its HTTP port. Workers that cannot
// reach nsqd cannot take tasks, so the daemon reports unhealthy.
func Nsqd(httpAddr string) Check {
	client := &http.Client{Timeout: 2 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/ping", httpAddr), nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("nsqd ping returned %d", resp.StatusCode)
		}
		return nil
	}
}

// Report is the healthz response body, one line per dependency.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// HTTPHandler runs every named check against the request context and
// answers 503 when any dependency is down.
func HTTPHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := Report{OK: true, Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report.OK = false
				report.Checks[name] = err.Error()
				continue
			}
			report.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if !report.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
