package broker

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Underlying is one entry of the optionable-underlyings listing
type Underlying struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Optionable bool   `json:"optionable"`
}

// DiscoverUnderlyingSymbols lists optionable underlyings, uppercased, deduplicated and sorted
func (c *Client) DiscoverUnderlyingSymbols(ctx context.Context) ([]string, error) {
	var result struct {
		envelope
		Output []Underlying `json:"output"`
	}
	query := url.Values{"optionable": {"true"}}
	if err := c.getJSON(ctx, "/v1/options/underlyings", query, &result); err != nil {
		return nil, fmt.Errorf("failed to discover underlyings: %w", err)
	}
	if err := result.err(); err != nil {
		return nil, fmt.Errorf("failed to discover underlyings: %w", err)
	}

	seen := make(map[string]struct{}, len(result.Output))
	symbols := make([]string, 0, len(result.Output))
	for _, u := range result.Output {
		if !u.Optionable {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(u.Symbol))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	c.logger.WithField("count", len(symbols)).Info("Discovered optionable underlyings")
	return symbols, nil
}
