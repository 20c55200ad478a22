//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gatherly/apiserver/config"
	"github.com/gatherly/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestEventSubscriptionLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()

	organiserToken, err := signupAndLogin(t, baseURL,
		fmt.Sprintf("organiser_%d@example.com", suffix), "Olga Organiser", []string{"organiser"})
	if err != nil {
		t.Fatalf("register organiser: %v", err)
	}
	intruderToken, err := signupAndLogin(t, baseURL,
		fmt.Sprintf("intruder_%d@example.com", suffix), "Omar Organiser", []string{"organiser"})
	if err != nil {
		t.Fatalf("register second organiser: %v", err)
	}
	participantToken, err := signupAndLogin(t, baseURL,
		fmt.Sprintf("participant_%d@example.com", suffix), "Pat Participant", nil)
	if err != nil {
		t.Fatalf("register participant: %v", err)
	}

	eventID, err := createEvent(t, baseURL, organiserToken)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if status, _, err := get(baseURL, fmt.Sprintf("/event/%d/subscribe", eventID), participantToken); err != nil || status != http.StatusOK {
		t.Fatalf("subscribe: status %d err %v", status, err)
	}

	// Double subscribe is rejected.
	if status, body, err := get(baseURL, fmt.Sprintf("/event/%d/subscribe", eventID), participantToken); err != nil || status != http.StatusBadRequest {
		t.Fatalf("double subscribe: status %d body %s err %v", status, body, err)
	}

	// Only the owner can read the subscriber list.
	if status, _, err := get(baseURL, fmt.Sprintf("/event/%d/subscribers", eventID), intruderToken); err != nil || status != http.StatusNotFound {
		t.Fatalf("foreign subscribers read: status %d err %v", status, err)
	}
	status, body, err := get(baseURL, fmt.Sprintf("/event/%d/subscribers", eventID), organiserToken)
	if err != nil || status != http.StatusOK {
		t.Fatalf("owner subscribers read: status %d err %v", status, err)
	}
	if !strings.Contains(body, fmt.Sprintf("participant_%d@example.com", suffix)) {
		t.Fatalf("expected participant in subscriber list, got %s", body)
	}

	if status, _, err := get(baseURL, fmt.Sprintf("/event/%d/unsubscribe", eventID), participantToken); err != nil || status != http.StatusOK {
		t.Fatalf("unsubscribe: status %d err %v", status, err)
	}
	if status, _, err := get(baseURL, fmt.Sprintf("/event/%d/unsubscribe", eventID), participantToken); err != nil || status != http.StatusBadRequest {
		t.Fatalf("double unsubscribe: status %d err %v", status, err)
	}

	// Re-subscribe after unsubscribe works.
	if status, _, err := get(baseURL, fmt.Sprintf("/event/%d/subscribe", eventID), participantToken); err != nil || status != http.StatusOK {
		t.Fatalf("re-subscribe: status %d err %v", status, err)
	}
}

func signupAndLogin(t *testing.T, baseURL, email, name string, roles []string) (string, error) {
	t.Helper()

	payload := map[string]any{
		"name":     name,
		"email":    email,
		"password": "testpass123!",
	}
	if roles != nil {
		payload["roles"] = roles
	}
	if status, body, err := post(baseURL, "/user/signup", "", payload); err != nil || status != http.StatusOK {
		return "", fmt.Errorf("signup status %d: %s (%v)", status, body, err)
	}

	status, body, err := post(baseURL, "/user/login", "", map[string]any{
		"email":    email,
		"password": "testpass123!",
	})
	if err != nil || status != http.StatusOK {
		return "", fmt.Errorf("login status %d: %s (%v)", status, body, err)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in login response")
	}
	return parsed.Token, nil
}

func createEvent(t *testing.T, baseURL, token string) (int, error) {
	t.Helper()

	status, body, err := post(baseURL, "/event/", token, map[string]any{
		"title":       "Gatherly Launch Party",
		"description": "End to end coverage",
		"date":        "2026-12-01T18:00:00Z",
	})
	if err != nil || status != http.StatusOK {
		return 0, fmt.Errorf("create event status %d: %s (%v)", status, body, err)
	}

	var parsed struct {
		Event struct {
			ID int `json:"id"`
		} `json:"event"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return 0, err
	}
	if parsed.Event.ID == 0 {
		return 0, fmt.Errorf("missing event id in response")
	}
	return parsed.Event.ID, nil
}

func post(baseURL, path, token string, payload map[string]any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req)
}

func get(baseURL, path, token string) (int, string, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req)
}

func do(req *http.Request) (int, string, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	msg, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, strings.TrimSpace(string(msg)), nil
}

func waitForPostgres(ctx context.Context) error {
	dsn := buildPostgresURL(testConfig())
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	dsn := buildPostgresURL(testConfig())
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		sslmode,
	)
}

func testConfig() config.Config {
	setTestEnv()
	return config.LoadConfig()
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "gatherly")
	_ = os.Setenv("DB_PASSWORD", "gatherly")
	_ = os.Setenv("DB_NAME", "gatherly")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("NOTIFIER_BACKEND", "disabled")
}

func startServer() (*server.Server, error) {
	cfg := testConfig()
	srv, err := server.New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
