package objectkey

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for object name generation strategies
type Generator interface {
	// GenerateName creates a storage object name for an uploaded file
	GenerateName(fileName string) string
}

// TimestampGenerator produces "<unix-millis>-<token><ext>" names. The random
// token makes names unique without coordinating between writers.
type TimestampGenerator struct {
	// TokenLength controls how many hex characters of randomness are used (default: 12)
	TokenLength int

	now   func() time.Time
	token func() string
}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{
		TokenLength: 12,
		now:         time.Now,
		token:       randomToken,
	}
}

func (g *TimestampGenerator) GenerateName(fileName string) string {
	now, token := g.now, g.token
	if now == nil {
		now = time.Now
	}
	if token == nil {
		token = randomToken
	}

	tok := token()
	if g.TokenLength > 0 && len(tok) > g.TokenLength {
		tok = tok[:g.TokenLength]
	}

	return fmt.Sprintf("%d-%s%s", now().UnixMilli(), tok, Extension(fileName))
}

// CustomFuncGenerator allows users to provide their own name generation function
type CustomFuncGenerator struct {
	GenerateFunc func(fileName string) string
}

func NewCustomFuncGenerator(fn func(fileName string) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateName(fileName string) string {
	return g.GenerateFunc(fileName)
}

// Extension returns the lower-cased extension of fileName, restricted to
// characters that are safe in object keys. Unsafe extensions are dropped.
func Extension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(fileName)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}
