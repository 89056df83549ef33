package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"routeplan/internal/model"
)

// DimensionTime and DimensionDistance select what the matrix measures:
// travel seconds or kilometers.
const (
	DimensionTime     = "time"
	DimensionDistance = "distance"
)

// Config holds everything the distancematrix.ai client needs. The API key
// lives here, passed in at construction; there is no process-wide secret.
type Config struct {
	BaseURL   string        // default https://api.distancematrix.ai
	APIKey    string
	Dimension string        // DimensionTime (default) or DimensionDistance
	Timeout   time.Duration // per-request timeout, default 15s
	RPS       float64       // request rate limit, default 5
}

// DistanceMatrixAI fetches matrices from the distancematrix.ai API.
type DistanceMatrixAI struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewDistanceMatrixAI builds a client from cfg, filling defaults.
func NewDistanceMatrixAI(cfg Config) *DistanceMatrixAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.distancematrix.ai"
	}
	if cfg.Dimension == "" {
		cfg.Dimension = DimensionTime
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	return &DistanceMatrixAI{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
	}
}

// CacheScope identifies what this client measures and where it fetches
// from. Cache layers fold it into their keys so a time matrix and a
// distance matrix for the same locations never share an entry.
func (d *DistanceMatrixAI) CacheScope() string {
	return d.cfg.Dimension + "|" + d.cfg.BaseURL
}

type apiResponse struct {
	Status string   `json:"status"`
	Rows   []apiRow `json:"rows"`
}

type apiRow struct {
	Elements []apiElement `json:"elements"`
}

type apiElement struct {
	Status   string    `json:"status"`
	Duration *apiValue `json:"duration"`
	Distance *apiValue `json:"distance"`
}

type apiValue struct {
	Value float64 `json:"value"`
}

// Matrix implements Provider. Pairs the service reports as ZERO_RESULTS are
// returned as model.Unreachable; any other element-level failure fails the
// whole fetch so the caller never sees a silently wrong value.
func (d *DistanceMatrixAI) Matrix(ctx context.Context, locations []model.Location) (model.TimeMatrix, error) {
	if len(locations) < 2 {
		return nil, ErrTooFewLocations
	}
	joined := joinLocations(locations)
	q := url.Values{}
	q.Set("origins", joined)
	q.Set("destinations", joined)
	q.Set("key", d.cfg.APIKey)
	endpoint := d.cfg.BaseURL + "/maps/api/distancematrix/json?" + q.Encode()

	resp, err := d.doWithRetry(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("matrix: fetch: %w", err)
	}
	if resp.Status != "OK" {
		return nil, &APIError{Status: resp.Status}
	}

	n := len(locations)
	if len(resp.Rows) != n {
		return nil, fmt.Errorf("matrix: partial result: got %d rows, want %d", len(resp.Rows), n)
	}
	out := make(model.TimeMatrix, n)
	for i, row := range resp.Rows {
		if len(row.Elements) != n {
			return nil, fmt.Errorf("matrix: partial result: row %d has %d elements, want %d", i, len(row.Elements), n)
		}
		out[i] = make([]int64, n)
		for j, el := range row.Elements {
			switch el.Status {
			case "OK":
				v, err := d.elementValue(el)
				if err != nil {
					return nil, fmt.Errorf("matrix: element [%d][%d]: %w", i, j, err)
				}
				out[i][j] = v
			case "ZERO_RESULTS":
				// No route between the pair; surfaced explicitly.
				out[i][j] = model.Unreachable
			default:
				return nil, fmt.Errorf("matrix: element [%d][%d] returned status %q", i, j, el.Status)
			}
		}
		out[i][i] = 0
	}
	return out, nil
}

func (d *DistanceMatrixAI) elementValue(el apiElement) (int64, error) {
	switch d.cfg.Dimension {
	case DimensionDistance:
		if el.Distance == nil {
			return 0, fmt.Errorf("missing distance value")
		}
		return int64(math.Round(el.Distance.Value / 1000)), nil // kilometers
	default:
		if el.Duration == nil {
			return 0, fmt.Errorf("missing duration value")
		}
		return int64(math.Round(el.Duration.Value)), nil // seconds
	}
}

func (d *DistanceMatrixAI) doWithRetry(ctx context.Context, endpoint string) (*apiResponse, error) {
	const attempts = 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
		} else if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, fmt.Errorf("http %d", resp.StatusCode)
		} else {
			var out apiResponse
			err = json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return &out, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// joinLocations renders locations for the API: "lat,lng" pairs when
// coordinates are present, otherwise the label (address), pipe-separated.
func joinLocations(locations []model.Location) string {
	parts := make([]string, len(locations))
	for i, l := range locations {
		if l.Lat != 0 || l.Lng != 0 {
			parts[i] = strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
		} else {
			parts[i] = l.Label
		}
	}
	return strings.Join(parts, "|")
}
