package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"

	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

// StaticHeaders returns the request headers derived from configuration
func StaticHeaders(config domain.HTTPConfig, userAgent string) http.Header {
	headers := make(http.Header)
	if userAgent == "" {
		userAgent = config.UserAgent
	}
	if userAgent != "" {
		headers.Set("User-Agent", userAgent)
	}
	if config.Referrer != "" {
		headers.Set("Referer", config.Referrer)
	}
	return headers
}

// ResolveHeaders builds the headers shared by every request of a run.
// When a robots.txt URL is configured, one of its allowed user agents is picked at random;
// any failure falls back to the configured user agent.
func ResolveHeaders(ctx context.Context, config domain.HTTPConfig, client domain.HTTPClient, log *zap.Logger) http.Header {
	if config.RobotsURL == "" {
		return StaticHeaders(config, "")
	}

	agents, err := FetchAllowedAgents(ctx, client, config.RobotsURL, StaticHeaders(config, ""))
	if err != nil {
		log.Warn("Failed to read allowed user agents, using configured user agent",
			zap.String("robots_url", config.RobotsURL),
			zap.Error(err))
		return StaticHeaders(config, "")
	}
	if len(agents) == 0 {
		log.Warn("robots.txt lists no allowed user agents, using configured user agent",
			zap.String("robots_url", config.RobotsURL))
		return StaticHeaders(config, "")
	}

	agent := agents[rand.Intn(len(agents))]
	log.Info("Using user agent from robots.txt", zap.String("user_agent", agent), zap.Int("candidates", len(agents)))
	return StaticHeaders(config, agent)
}

// FetchAllowedAgents downloads robots.txt and returns its allowed agents
func FetchAllowedAgents(ctx context.Context, client domain.HTTPClient, robotsURL string, headers http.Header) ([]string, error) {
	status, body, err := client.Get(ctx, robotsURL, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if !domain.IsSuccessStatus(status) {
		return nil, &domain.HTTPStatusError{URL: robotsURL, StatusCode: status}
	}
	return ParseAllowedAgents(body)
}

// ParseAllowedAgents returns the User-agent names listed before the first "Allow: /" rule
func ParseAllowedAgents(r io.Reader) ([]string, error) {
	var agents []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "Allow: /" {
			return agents, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "user-agent") {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" && value != "*" {
			agents = append(agents, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}
	// No allow rule means no agent is explicitly allowed
	return nil, nil
}
