package freightdesk_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and a small JSON client for freightdesk end-to-end tests.
 */

const (
	testImageName = "freightdesk-test:latest"

	adminEmail    = "ops@freightdesk.test"
	adminUsername = "ops"
	adminPassword = "Admin123!"
)

// TestMain builds the image once for every test in the package. Without a
// Docker daemon the suite is skipped.
func TestMain(m *testing.M) {
	if err := exec.Command("docker", "info").Run(); err != nil {
		fmt.Fprintln(os.Stdout, "docker unavailable, skipping freightdesk e2e tests")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building freightdesk Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up freightdesk Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/freightdesk/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// baseEnv seeds an admin and lifts the rate limits so tests can make many
// rapid requests.
func baseEnv() map[string]string {
	return map[string]string{
		"ENV":                         "test",
		"LOG_LEVEL":                   "info",
		"LOG_FORMAT":                  "json",
		"SEED_ADMIN_EMAIL":            adminEmail,
		"SEED_ADMIN_USERNAME":         adminUsername,
		"SEED_ADMIN_PASSWORD":         adminPassword,
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
}

// setupContainer starts freightdesk with env layered over baseEnv and
// returns a client for it. Pass a "-" value to drop a base key.
func setupContainer(t *testing.T, env map[string]string) *client {
	t.Helper()
	ctx := context.Background()

	merged := baseEnv()
	for k, v := range env {
		if v == "-" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          merged,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return &client{
		baseURL: fmt.Sprintf("http://%s:%s", host, port.Port()),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type client struct {
	baseURL string
	http    *http.Client
	token   string
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (c *client) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, c.baseURL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// send is do without assertions, safe to call from other goroutines.
func (c *client) send(method, path, body string) (int, error) {
	req, err := http.NewRequest(method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// login returns a copy of c carrying a bearer token for the given account.
func (c *client) login(t *testing.T, identifier, password string) *client {
	t.Helper()
	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
	}
	code := c.do(t, http.MethodPost, "/v1/users/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &resp)
	require.Equal(t, http.StatusOK, code, "login should succeed")
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "Bearer", resp.TokenType)

	return &client{baseURL: c.baseURL, http: c.http, token: resp.Token}
}

type errorBody struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Fields           map[string]string `json:"fields"`
}
