package scan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
	"github.com/tendant/venue-admin/pkg/portal"
	"github.com/tendant/venue-admin/pkg/portal/repo/memory"
	"github.com/tendant/venue-admin/pkg/portal/scan"
)

const baseURL = "https://storage.example.com/public"

func seed(t *testing.T, repo *memory.Repository, schema *portal.Schema, tenantID string, values ...portal.Record) {
	t.Helper()
	for _, v := range values {
		_, err := repo.Insert(context.Background(), schema, tenantID, v)
		require.NoError(t, err)
	}
}

func TestScanBatches(t *testing.T) {
	repo := memory.New()
	for i := 0; i < 7; i++ {
		seed(t, repo, portal.Clubs, "tenant-a", portal.Record{"name": fmt.Sprintf("club-%d", i)})
	}
	seed(t, repo, portal.Clubs, "tenant-b", portal.Record{"name": "elsewhere"})
	seed(t, repo, portal.Lounges, "tenant-a", portal.Record{"name": "lounge"})

	scanner := scan.New(repo, portal.BuiltinSchemas()...)

	var names []string
	var progress []int
	result, err := scanner.Scan(context.Background(), scan.Options{
		TenantID:  "tenant-a",
		Entities:  []string{"clubs"},
		BatchSize: 3,
		Processor: scan.ProcessorFunc(func(_ context.Context, _ *portal.Schema, rec portal.Record) error {
			names = append(names, rec.String("name"))
			return nil
		}),
		OnProgress: func(_ string, processed, _ int) { progress = append(progress, processed) },
	})
	require.NoError(t, err)

	assert.Equal(t, 7, result.TotalFound)
	assert.Equal(t, 7, result.TotalProcessed)
	assert.Equal(t, []int{3, 6, 7}, progress)
	assert.Equal(t, "club-0", names[0], "records are visited oldest first")
	assert.NotContains(t, names, "elsewhere")
	assert.NotContains(t, names, "lounge")
}

func TestScanFailuresContinue(t *testing.T) {
	repo := memory.New()
	seed(t, repo, portal.Clubs, "tenant-a", portal.Record{"name": "ok"}, portal.Record{"name": "bad"}, portal.Record{"name": "ok too"})

	result, err := scan.New(repo, portal.Clubs).Scan(context.Background(), scan.Options{
		TenantID: "tenant-a",
		Processor: scan.ProcessorFunc(func(_ context.Context, _ *portal.Schema, rec portal.Record) error {
			if rec.String("name") == "bad" {
				return errors.New("boom")
			}
			return nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.TotalFailed)
	require.Len(t, result.FailedIDs, 1)
	assert.Contains(t, result.FailedIDs[0], "clubs/")
}

func TestScanOptionErrors(t *testing.T) {
	scanner := scan.New(memory.New(), portal.Clubs)
	ctx := context.Background()

	_, err := scanner.Scan(ctx, scan.Options{DryRun: true})
	assert.Error(t, err, "tenant is required")

	_, err = scanner.Scan(ctx, scan.Options{TenantID: "t"})
	assert.Error(t, err, "processor is required")

	_, err = scanner.Scan(ctx, scan.Options{TenantID: "t", DryRun: true, Entities: []string{"spaceships"}})
	assert.ErrorIs(t, err, portal.ErrUnknownEntity)
}

func TestAttachmentAudit(t *testing.T) {
	repo := memory.New()
	seed(t, repo, portal.Clubs, "tenant-a",
		portal.Record{"name": "managed", "logo_url": baseURL + "/venues/clubs/logos/a.png"},
		portal.Record{"name": "external", "cover_image": "https://images.example.org/cover.jpg"},
		portal.Record{"name": "bare"},
	)
	seed(t, repo, portal.Posts, "tenant-a", portal.Record{"title": "Opening night", "cover_image": baseURL + "/posts/covers/b.webp"})

	audit := scan.NewAttachmentAudit(publicurl.NewPathStrategy(baseURL))
	counter := 0
	result, err := scan.New(repo, portal.BuiltinSchemas()...).Scan(context.Background(), scan.Options{
		TenantID: "tenant-a",
		Processor: scan.ChainProcessor{audit, scan.ProcessorFunc(func(context.Context, *portal.Schema, portal.Record) error {
			counter++
			return nil
		})},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalProcessed)
	assert.Equal(t, 4, counter)

	summary := audit.Summary()
	assert.Equal(t, 2, summary.Managed)
	assert.Equal(t, 1, summary.External)
	assert.Equal(t, 4, summary.Empty)
	assert.Equal(t, map[string]int{"venues": 1, "posts": 1}, summary.ByBucket)

	attachments := audit.Attachments()
	require.Len(t, attachments, 3)
	assert.Equal(t, "clubs", attachments[0].Entity)
	assert.Equal(t, "posts", attachments[2].Entity)
	assert.Equal(t, "covers/b.webp", attachments[2].Path)
}
