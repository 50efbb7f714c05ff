// Package health checks the service's external dependencies.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/config"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	StatusUp   = "up"
	StatusDown = "down"

	defaultTimeout = 5 * time.Second
)

type Result struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func timeoutOf(check config.DependencyCheck) time.Duration {
	if check.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(check.Timeout) * time.Second
}

// CheckDatabase opens check.DSN with the postgres or mysql driver and pings it.
func CheckDatabase(ctx context.Context, check config.DependencyCheck) error {
	ctx, cancel := context.WithTimeout(ctx, timeoutOf(check))
	defer cancel()

	driverName := strings.ToLower(check.Driver)

	switch driverName {
	case "postgres", "postgresql":
		driverName = "postgres"
	case "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", check.Driver)
	}

	db, err := sql.Open(driverName, check.DSN)
	if err != nil {
		return fmt.Errorf("failed to open a database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// CheckHTTP issues a GET and compares the status code, 200 unless configured.
func CheckHTTP(ctx context.Context, check config.DependencyCheck) error {
	ctx, cancel := context.WithTimeout(ctx, timeoutOf(check))
	defer cancel()

	expected := check.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.URL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		return errors.New("unexpected status code: " + resp.Status)
	}

	return nil
}

var lookupMX = net.DefaultResolver.LookupMX

// CheckMX verifies that domain publishes at least one mail exchanger.
func CheckMX(ctx context.Context, domain string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	records, err := lookupMX(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to resolve MX record for %s: %w", domain, err)
	}

	if len(records) == 0 {
		return fmt.Errorf("no MX records found for %s", domain)
	}

	return nil
}

// Run executes every configured check and reports each outcome.
func Run(ctx context.Context, checks []config.DependencyCheck) []Result {
	results := make([]Result, 0, len(checks))

	for _, check := range checks {
		start := time.Now()
		var err error

		switch check.Type {
		case config.CheckTypeDatabase:
			err = CheckDatabase(ctx, check)
		case config.CheckTypeHTTP:
			err = CheckHTTP(ctx, check)
		default:
			err = fmt.Errorf("unsupported check type: %s", check.Type)
		}

		result := Result{
			Name:      check.Name,
			Type:      check.Type,
			Status:    StatusUp,
			LatencyMS: time.Since(start).Milliseconds(),
		}

		if err != nil {
			result.Status = StatusDown
			result.Error = err.Error()
		}

		results = append(results, result)
	}

	return results
}
