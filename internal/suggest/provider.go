package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// maxProviderSuggestions caps how many upstream suggestions are accepted.
const maxProviderSuggestions = 5

// Provider generates suggestions from metrics. Implementations may fail;
// callers fall back to BuildSuggestions and never surface provider errors.
type Provider interface {
	Suggestions(ctx context.Context, m Metrics) ([]string, error)
}

// HTTPProvider calls an external suggestion service over JSON/HTTP.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider constructs an HTTPProvider with a request timeout so the
// report path never blocks indefinitely on the collaborator.
func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type providerResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggestions posts the metrics and decodes the suggestion list. Any
// non-2xx status, transport failure, or malformed body is an error.
func (p *HTTPProvider) Suggestions(ctx context.Context, m Metrics) ([]string, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("suggestion provider returned status %d", resp.StatusCode)
	}

	var decoded providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode suggestion response: %w", err)
	}

	cleaned := make([]string, 0, len(decoded.Suggestions))
	for _, s := range decoded.Suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, s)
		if len(cleaned) == maxProviderSuggestions {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("suggestion provider returned no usable suggestions")
	}
	return cleaned, nil
}
