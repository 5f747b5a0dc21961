package publicurl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathStrategy_RoundTrip(t *testing.T) {
	s := NewPathStrategy("https://storage.example.com/object/public/")

	u := s.PublicURL("venues", "clubs/1700000000000-abc.png")
	assert.Equal(t, "https://storage.example.com/object/public/venues/clubs/1700000000000-abc.png", u)

	bucket, path, err := s.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "venues", bucket)
	assert.Equal(t, "clubs/1700000000000-abc.png", path)
}

func TestPathStrategy_Parse(t *testing.T) {
	s := NewPathStrategy("https://storage.example.com/public")

	tests := []struct {
		name   string
		url    string
		bucket string
		path   string
		err    error
	}{
		{"with query", "https://storage.example.com/public/posts/a/b.jpg?v=2", "posts", "a/b.jpg", nil},
		{"escaped segment", "https://storage.example.com/public/posts/my%20file.jpg", "posts", "my file.jpg", nil},
		{"external host", "https://cdn.example.com/a.png", "", "", ErrForeignURL},
		{"bucket only", "https://storage.example.com/public/posts", "", "", ErrForeignURL},
		{"empty", "", "", "", ErrForeignURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, path, err := s.Parse(tt.url)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestCDNStrategy(t *testing.T) {
	s := NewCDNStrategy(map[string]string{
		"venues": "https://venues.cdn.example.com/",
		"posts":  "https://posts.cdn.example.com",
	})

	u := s.PublicURL("posts", "feed/x.webp")
	assert.Equal(t, "https://posts.cdn.example.com/feed/x.webp", u)

	bucket, path, err := s.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "posts", bucket)
	assert.Equal(t, "feed/x.webp", path)

	assert.Empty(t, s.PublicURL("unknown", "a.png"))

	_, _, err = s.Parse("https://other.example.com/a.png")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestNew(t *testing.T) {
	_, err := New(Config{Type: StrategyTypePath})
	assert.Error(t, err)

	_, err = New(Config{Type: StrategyTypeCDN})
	assert.Error(t, err)

	_, err = New(Config{Type: "bogus", BaseURL: "x"})
	assert.Error(t, err)

	s, err := New(Config{BaseURL: "http://localhost:8080/files"})
	require.NoError(t, err)
	assert.IsType(t, &PathStrategy{}, s)
}

func TestCDNStrategy_Fallback(t *testing.T) {
	s, err := New(Config{
		Type:       StrategyTypeCDN,
		BaseURL:    "https://storage.example.com/public",
		CDNBuckets: map[string]string{"venues": "https://venues.cdn.example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://venues.cdn.example.com/clubs/a.png", s.PublicURL("venues", "clubs/a.png"))
	assert.Equal(t, "https://storage.example.com/public/posts/covers/b.png", s.PublicURL("posts", "covers/b.png"))

	bucket, path, err := s.Parse("https://storage.example.com/public/posts/covers/b.png")
	require.NoError(t, err)
	assert.Equal(t, "posts", bucket)
	assert.Equal(t, "covers/b.png", path)

	_, _, err = s.Parse("https://elsewhere.example.org/a.png")
	assert.ErrorIs(t, err, ErrForeignURL)
}
