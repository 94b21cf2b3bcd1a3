package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client queries a LUIS-style NLU REST endpoint. It implements Service.
type Client struct {
	endpoint   string
	appID      string
	key        string
	httpClient *http.Client
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithNLUHTTPClient overrides the underlying HTTP client
func WithNLUHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an NLU client. endpoint is the service base URL, appID
// the trained model id, key the subscription key.
func NewClient(endpoint, appID, key string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		appID:    appID,
		key:      key,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire format of a query response

type wireIntent struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"`
}

type wireResolutionValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type wireEntity struct {
	Entity     string `json:"entity"`
	Type       string `json:"type"`
	Resolution struct {
		Values []wireResolutionValue `json:"values"`
	} `json:"resolution"`
}

type wireResult struct {
	Query            string       `json:"query"`
	TopScoringIntent wireIntent   `json:"topScoringIntent"`
	Entities         []wireEntity `json:"entities"`
}

// Query runs one utterance through the NLU model
func (c *Client) Query(ctx context.Context, text string) (*Result, error) {
	u := fmt.Sprintf("%s/luis/v2.0/apps/%s?subscription-key=%s&q=%s",
		c.endpoint, url.PathEscape(c.appID), url.QueryEscape(c.key), url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query NLU service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read NLU response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NLU query failed (status %d): %s", resp.StatusCode, string(body))
	}

	var wire wireResult
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse NLU response: %w", err)
	}
	return wire.toResult(), nil
}

func (w *wireResult) toResult() *Result {
	result := &Result{
		Query:  w.Query,
		Intent: w.TopScoringIntent.Intent,
	}
	for _, e := range w.Entities {
		entity := Entity{
			Type: mapEntityType(e.Type),
			Text: e.Entity,
		}
		for _, v := range e.Resolution.Values {
			if v.Start != "" || v.End != "" {
				entity.Ranges = append(entity.Ranges, TimeRangeValue{Start: v.Start, End: v.End})
			} else if v.Value != "" {
				entity.Values = append(entity.Values, v.Value)
			}
		}
		result.Entities = append(result.Entities, entity)
	}
	return result
}

// mapEntityType translates the model's entity type tags to ours. Built-in
// temporal types are namespaced ("builtin.datetimeV2.time"); custom entities
// (room, building, floor) come through under their plain names.
func mapEntityType(wireType string) string {
	if idx := strings.LastIndex(wireType, "."); idx >= 0 && strings.HasPrefix(wireType, "builtin.") {
		wireType = wireType[idx+1:]
	}
	switch strings.ToLower(wireType) {
	case "time":
		return TypeTime
	case "datetime":
		return TypeDateTime
	case "duration":
		return TypeDuration
	case "timerange", "datetimerange":
		return TypeTimeRange
	case "room":
		return TypeRoom
	case "building":
		return TypeBuilding
	case "floor":
		return TypeFloor
	default:
		return strings.ToLower(wireType)
	}
}
