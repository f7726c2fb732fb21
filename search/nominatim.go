// Package search resolves free text to places and places to names through a
// Nominatim service.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"kuanb/gosm-scene/logger"
)

const (
	DefaultURL = "https://nominatim.openstreetmap.org"
	// MinQueryLength is the shortest query sent upstream.
	MinQueryLength = 3
	DefaultLimit   = 5
)

var (
	// ErrQueryTooShort is returned for queries under MinQueryLength characters.
	ErrQueryTooShort = errors.New("search: query too short")
	// ErrNotFound is returned when a reverse lookup has no match.
	ErrNotFound = errors.New("search: no results")
)

// Place is a geocoded location.
type Place struct {
	DisplayName string    `json:"display_name"`
	Point       orb.Point `json:"point"` // lon, lat
}

// MainText is the first part of the display name.
func (p Place) MainText() string {
	parts := strings.Split(p.DisplayName, ", ")
	return parts[0]
}

// SecondaryText is the two parts following MainText, usually region and country.
func (p Place) SecondaryText() string {
	parts := strings.Split(p.DisplayName, ", ")
	if len(parts) < 2 {
		return ""
	}
	end := min(len(parts), 3)
	return strings.Join(parts[1:end], ", ")
}

// Client talks to a Nominatim endpoint.
type Client struct {
	BaseURL   string
	UserAgent string
	client    *http.Client
	log       *zap.Logger
}

// NewClient returns a client for baseURL; empty means DefaultURL.
func NewClient(baseURL, userAgent string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       logger.OrNop(log),
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
}

func (n nominatimPlace) place() (Place, error) {
	lat, err := strconv.ParseFloat(n.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad latitude %q: %w", n.Lat, err)
	}
	lon, err := strconv.ParseFloat(n.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad longitude %q: %w", n.Lon, err)
	}
	return Place{DisplayName: n.DisplayName, Point: orb.Point{lon, lat}}, nil
}

// Search returns up to limit places matching query, best match first. No
// match gives an empty slice.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.place()
		if err != nil {
			c.log.Debug("skipping search result", zap.String("name", r.DisplayName), zap.Error(err))
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

// Reverse names the place at point.
func (c *Client) Reverse(ctx context.Context, point orb.Point) (Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(point.Lat(), 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(point.Lon(), 'f', 6, 64))

	var raw nominatimPlace
	if err := c.get(ctx, "/reverse", params, &raw); err != nil {
		return Place{}, err
	}
	if raw.Error != "" || raw.DisplayName == "" {
		return Place{}, ErrNotFound
	}
	return raw.place()
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	c.log.Debug("nominatim request complete", zap.String("path", path), zap.Duration("duration", time.Since(start)))
	return nil
}
