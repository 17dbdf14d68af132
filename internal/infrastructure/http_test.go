package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

func TestHTTPGetter_SendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s|%s", r.Header.Get("User-Agent"), r.Header.Get("Referer"))
	}))
	defer server.Close()

	getter := NewHTTPGetter(domain.HTTPConfig{Timeout: 5 * time.Second, MaxConnsPerHost: 2})
	headers := StaticHeaders(domain.HTTPConfig{UserAgent: "test-agent", Referrer: "https://ref.example"}, "")

	status, body, err := getter.Get(context.Background(), server.URL, headers)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test-agent|https://ref.example", string(data))
}

func TestHTTPGetter_TransportError(t *testing.T) {
	getter := NewHTTPGetter(domain.HTTPConfig{Timeout: time.Second})
	_, _, err := getter.Get(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	assert.Error(t, err)
}

func TestParseAllowedAgents(t *testing.T) {
	robots := strings.Join([]string{
		"User-agent: Googlebot",
		"User-agent: Applebot",
		"User-agent: *",
		"Allow: /",
		"",
		"User-agent: BadBot",
		"Disallow: /",
	}, "\n")

	agents, err := ParseAllowedAgents(strings.NewReader(robots))
	require.NoError(t, err)
	assert.Equal(t, []string{"Googlebot", "Applebot"}, agents)

	agents, err = ParseAllowedAgents(strings.NewReader("User-agent: X\nDisallow: /\n"))
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestResolveHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "User-agent: Googlebot\nAllow: /\n")
	}))
	defer server.Close()

	getter := NewHTTPGetterWithClient(server.Client())
	log := zap.NewNop()

	config := domain.HTTPConfig{UserAgent: "configured", RobotsURL: server.URL + "/robots.txt"}
	headers := ResolveHeaders(context.Background(), config, getter, log)
	assert.Equal(t, "Googlebot", headers.Get("User-Agent"))

	config.RobotsURL = server.URL + "/missing.txt"
	headers = ResolveHeaders(context.Background(), config, getter, log)
	assert.Equal(t, "configured", headers.Get("User-Agent"))

	config.RobotsURL = ""
	headers = ResolveHeaders(context.Background(), config, getter, log)
	assert.Equal(t, "configured", headers.Get("User-Agent"))
	assert.Empty(t, headers.Get("Referer"))
}

func TestHTTPDownloader_Success(t *testing.T) {
	payload := strings.Repeat("video-bytes-", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	downloader := NewHTTPDownloader(NewHTTPGetterWithClient(server.Client()), nil, 64, zap.NewNop())
	descriptor := domain.MediaDescriptor{Owner: "https://x.com/a/status/1", Ordinal: 0, Locator: server.URL + "/v.mp4"}
	dest := descriptor.DestinationPath(dir, "", ".mp4")

	outcome := downloader.Download(context.Background(), descriptor, dest)
	require.True(t, outcome.Success, outcome.FailureReason())
	assert.Equal(t, int64(len(payload)), outcome.BytesWritten)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	// Idempotent: second download overwrites with the same content
	outcome = downloader.Download(context.Background(), descriptor, dest)
	require.True(t, outcome.Success)
	files, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestHTTPDownloader_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	downloader := NewHTTPDownloader(NewHTTPGetterWithClient(server.Client()), nil, 0, zap.NewNop())
	dest := filepath.Join(dir, "a", "1_0.mp4")

	outcome := downloader.Download(context.Background(), domain.MediaDescriptor{Locator: server.URL}, dest)
	assert.False(t, outcome.Success)

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(outcome.Err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.NoFileExists(t, dest)
}

func TestHTTPDownloader_TruncatedBodyLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "short")
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "owner", "item_0.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0644))

	downloader := NewHTTPDownloader(NewHTTPGetterWithClient(server.Client()), nil, 0, zap.NewNop())
	outcome := downloader.Download(context.Background(), domain.MediaDescriptor{Locator: server.URL}, dest)
	assert.False(t, outcome.Success)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	files, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp file must be removed")
}

func TestHTTPDownloader_UnwritableDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data")
	}))
	defer server.Close()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "owner")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0644))

	downloader := NewHTTPDownloader(NewHTTPGetterWithClient(server.Client()), nil, 0, zap.NewNop())
	outcome := downloader.Download(context.Background(), domain.MediaDescriptor{Locator: server.URL}, filepath.Join(blocker, "x_0.mp4"))
	assert.False(t, outcome.Success)

	var ioErr *domain.IOError
	assert.True(t, errors.As(outcome.Err, &ioErr))
}
