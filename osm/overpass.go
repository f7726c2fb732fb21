package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const (
	// DefaultOverpassURL is the public Overpass API interpreter endpoint.
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	// UserAgent identifies outbound map-data requests.
	UserAgent = "gosm-scene/1.0"
)

// ErrEmptyResponse is returned when the data source answers without a body.
var ErrEmptyResponse = errors.New("empty response from feature source")

// FeatureSource returns the raw elements inside a bounding box.
type FeatureSource interface {
	Fetch(ctx context.Context, bound orb.Bound) (*Collection, error)
}

// queryFilters are the tag selectors requested for the preview. Each is asked
// for both as way and relation.
var queryFilters = []string{
	`["building"]`,
	`["highway"]`,
	`["railway"]`,
	`["man_made"="bridge"]`,
	`["natural"="water"]`,
	`["water"]`,
	`["landuse"="basin"]`,
	`["leisure"="park"]`,
	`["landuse"="forest"]`,
	`["leisure"="garden"]`,
	`["landuse"="grass"]`,
}

// BuildQuery returns the Overpass QL for everything the scene can render
// inside bound, followed by a recursion down to the member nodes.
func BuildQuery(bound orb.Bound, timeoutSeconds int) string {
	bbox := fmt.Sprintf("(%g,%g,%g,%g)", bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon())

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeoutSeconds)
	for _, f := range queryFilters {
		fmt.Fprintf(&b, "  way%s%s;\n", f, bbox)
		fmt.Fprintf(&b, "  relation%s%s;\n", f, bbox)
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

// OverpassClient fetches features from an Overpass API instance.
type OverpassClient struct {
	URL          string
	QueryTimeout int
	client       *http.Client
	log          *zap.Logger
}

// NewOverpassClient creates a client; an empty url selects the public instance.
func NewOverpassClient(url string, timeout time.Duration, log *zap.Logger) *OverpassClient {
	if url == "" {
		url = DefaultOverpassURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OverpassClient{
		URL:          url,
		QueryTimeout: 25,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}
}

// Fetch runs the scene query for bound. Failures are returned as-is; the
// caller decides how to surface them and nothing is retried.
func (c *OverpassClient) Fetch(ctx context.Context, bound orb.Bound) (*Collection, error) {
	query := BuildQuery(bound, c.QueryTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "text/plain")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	coll, err := DecodeOverpassJSON(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("overpass fetch complete",
		zap.Int("elements", coll.Len()),
		zap.Duration("duration", time.Since(start)))
	return coll, nil
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type    string            `json:"type"`
	ID      int64             `json:"id"`
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
	Nodes   []int64           `json:"nodes"`
	Members []overpassMember  `json:"members"`
	Tags    map[string]string `json:"tags"`
}

type overpassMember struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

// DecodeOverpassJSON reads an Overpass `[out:json]` document. Elements of an
// unknown type are skipped.
func DecodeOverpassJSON(r io.Reader) (*Collection, error) {
	var resp overpassResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyResponse
		}
		return nil, fmt.Errorf("invalid overpass response: %w", err)
	}

	coll := &Collection{Elements: make([]Element, 0, len(resp.Elements))}
	for _, el := range resp.Elements {
		switch ElementType(el.Type) {
		case TypeNode:
			coll.Add(&OsmNode{ID: OsmNodeId(el.ID), Lat: el.Lat, Lon: el.Lon, Tags: el.Tags})
		case TypeWay:
			nodes := make([]OsmNodeId, len(el.Nodes))
			for i, id := range el.Nodes {
				nodes[i] = OsmNodeId(id)
			}
			coll.Add(&OsmWay{ID: OsmWayId(el.ID), Nodes: nodes, Tags: el.Tags})
		case TypeRelation:
			members := make([]OsmMember, len(el.Members))
			for i, m := range el.Members {
				members[i] = OsmMember{Type: ElementType(m.Type), Ref: m.Ref, Role: m.Role}
			}
			coll.Add(&OsmRelation{ID: OsmRelationId(el.ID), Members: members, Tags: el.Tags})
		}
	}
	return coll, nil
}
