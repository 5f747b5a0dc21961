package publicurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrForeignURL indicates the URL was not produced by the strategy, typically an
// externally hosted image pasted by the user.
var ErrForeignURL = errors.New("url does not belong to storage")

// Strategy defines how public object URLs are built and parsed back
type Strategy interface {
	// PublicURL returns the public URL for bucket/path
	PublicURL(bucket, path string) string

	// Parse extracts bucket and path from a URL produced by PublicURL
	Parse(rawURL string) (bucket, path string, err error)
}

// StrategyType represents the type of public URL strategy
type StrategyType string

const (
	// StrategyTypePath serves every bucket from <base>/<bucket>/<path>
	StrategyTypePath StrategyType = "path"

	// StrategyTypeCDN serves each bucket from its own CDN host
	StrategyTypeCDN StrategyType = "cdn"
)

// Config holds configuration for strategy creation
type Config struct {
	Type       StrategyType
	BaseURL    string            // path strategy; fallback for unmapped buckets with cdn
	CDNBuckets map[string]string // bucket -> CDN base URL
}

// New creates a strategy based on the configuration
func New(config Config) (Strategy, error) {
	switch config.Type {
	case StrategyTypePath, "":
		if config.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for path strategy")
		}
		return NewPathStrategy(config.BaseURL), nil

	case StrategyTypeCDN:
		if len(config.CDNBuckets) == 0 {
			return nil, fmt.Errorf("CDN buckets are required for CDN strategy")
		}
		cdn := NewCDNStrategy(config.CDNBuckets)
		if config.BaseURL != "" {
			cdn.Fallback = NewPathStrategy(config.BaseURL)
		}
		return cdn, nil

	default:
		return nil, fmt.Errorf("unknown public URL strategy type: %s", config.Type)
	}
}

// PathStrategy builds URLs of the form <base>/<bucket>/<path>, matching hosted
// storage services that expose public buckets under a common prefix.
type PathStrategy struct {
	BaseURL string
}

// NewPathStrategy creates a path strategy; a trailing slash on base is dropped
func NewPathStrategy(baseURL string) *PathStrategy {
	return &PathStrategy{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *PathStrategy) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", s.BaseURL, bucket, escapePath(path))
}

func (s *PathStrategy) Parse(rawURL string) (string, string, error) {
	rest, ok := strings.CutPrefix(stripQuery(rawURL), s.BaseURL+"/")
	if !ok {
		return "", "", ErrForeignURL
	}
	bucket, path, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", ErrForeignURL
	}
	return bucket, unescapePath(path), nil
}

// CDNStrategy maps each bucket to a dedicated CDN base URL. Buckets without a
// CDN host use Fallback when it is set.
type CDNStrategy struct {
	Buckets  map[string]string
	Fallback Strategy
}

// NewCDNStrategy creates a CDN strategy; trailing slashes are dropped
func NewCDNStrategy(buckets map[string]string) *CDNStrategy {
	normalized := make(map[string]string, len(buckets))
	for bucket, base := range buckets {
		normalized[bucket] = strings.TrimSuffix(base, "/")
	}
	return &CDNStrategy{Buckets: normalized}
}

func (s *CDNStrategy) PublicURL(bucket, path string) string {
	base, ok := s.Buckets[bucket]
	if !ok {
		if s.Fallback != nil {
			return s.Fallback.PublicURL(bucket, path)
		}
		return ""
	}
	return fmt.Sprintf("%s/%s", base, escapePath(path))
}

func (s *CDNStrategy) Parse(rawURL string) (string, string, error) {
	clean := stripQuery(rawURL)
	for bucket, base := range s.Buckets {
		if path, ok := strings.CutPrefix(clean, base+"/"); ok && path != "" {
			return bucket, unescapePath(path), nil
		}
	}
	if s.Fallback != nil {
		return s.Fallback.Parse(rawURL)
	}
	return "", "", ErrForeignURL
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func unescapePath(path string) string {
	if p, err := url.PathUnescape(path); err == nil {
		return p
	}
	return path
}
