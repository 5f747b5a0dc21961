package portal_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

func TestEditor_NewRecord(t *testing.T) {
	f := newFixture(t)
	ed := portal.NewEditor(portal.Clubs, nil, f.uploader, f.cleaner)

	assert.True(t, ed.IsNew())
	assert.Equal(t, "", ed.ID())

	values := ed.Values()
	assert.Equal(t, "", values["name"])
	assert.Equal(t, 0.0, values["price_level"])
	assert.Equal(t, false, values["is_active"])
	assert.Equal(t, []string{}, values["genres"])
	assert.Equal(t, "", values["logo_url"])

	var verr *portal.ValidationError
	require.True(t, errors.As(ed.Validate(), &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Nil(t, ed.AttachmentChanges())
}

func TestEditor_Fields(t *testing.T) {
	f := newFixture(t)
	ed := portal.NewEditor(portal.Clubs, nil, f.uploader, f.cleaner)

	require.NoError(t, ed.SetString("name", " Blue Room "))
	require.NoError(t, ed.SetNumber("price_level", 3))
	require.NoError(t, ed.SetBool("is_active", true))

	chips, err := ed.Chips("genres")
	require.NoError(t, err)
	chips.Add("house")
	chips.Add("house")
	chips.Add("techno")

	values := ed.Values()
	assert.Equal(t, "Blue Room", values["name"])
	assert.Equal(t, 3.0, values["price_level"])
	assert.Equal(t, true, values["is_active"])
	assert.Equal(t, []string{"house", "techno"}, values["genres"])
	assert.NoError(t, ed.Validate())

	t.Run("unknown field", func(t *testing.T) {
		assert.ErrorIs(t, ed.Set("colour", "red"), portal.ErrUnknownField)
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := ed.Chips("name")
		assert.ErrorIs(t, err, portal.ErrFieldKind)
		_, err = ed.Attachment("genres")
		assert.ErrorIs(t, err, portal.ErrFieldKind)
	})

	t.Run("apply is all or nothing", func(t *testing.T) {
		err := ed.Apply(map[string]any{"name": "Changed", "price_level": "lots"})
		var verr *portal.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Blue Room", ed.Values()["name"])
	})
}

func TestEditor_Attachment(t *testing.T) {
	f := newFixture(t)
	original := portal.Record{
		"id":        "club-1",
		"tenant_id": "tenant-a",
		"name":      "Blue Room",
		"logo_url":  testBaseURL + "/venues/clubs/logos/old.png",
		"genres":    []any{"house"},
	}
	ed := portal.NewEditor(portal.Clubs, original, f.uploader, f.cleaner)
	assert.False(t, ed.IsNew())
	assert.Equal(t, "club-1", ed.ID())

	logo, err := ed.Attachment("logo_url")
	require.NoError(t, err)
	assert.Equal(t, media.StateAttached, logo.State())
	assert.Equal(t, "clubs/logos", logo.Constraints().Folder)
	assert.Equal(t, "Upload a logo or paste a URL", logo.Placeholder())

	result, err := logo.Upload(context.Background(), pngFile("new.png", 1024))
	require.NoError(t, err)
	assert.Equal(t, result.URL, ed.Values()["logo_url"])

	changes := ed.AttachmentChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, portal.AttachmentChange{
		Field:    "logo_url",
		Previous: testBaseURL + "/venues/clubs/logos/old.png",
		Current:  result.URL,
	}, changes[0])

	t.Run("oversized upload leaves the value", func(t *testing.T) {
		_, err := logo.Upload(context.Background(), pngFile("huge.png", 6*media.MiB))
		assert.ErrorIs(t, err, media.ErrSizeExceeded)
		assert.Equal(t, result.URL, ed.Values()["logo_url"])
	})

	t.Run("set empty removes", func(t *testing.T) {
		require.NoError(t, ed.Set("logo_url", ""))
		assert.Equal(t, "", ed.Values()["logo_url"])
		assert.Equal(t, media.StateEmpty, logo.State())
	})

	t.Run("set url attaches", func(t *testing.T) {
		require.NoError(t, ed.Set("logo_url", "https://cdn.example.com/a.png"))
		assert.Equal(t, "https://cdn.example.com/a.png", ed.Values()["logo_url"])
	})

	assert.Empty(t, f.storage.deletes())
}

func TestEditor_ForTenant(t *testing.T) {
	f := newFixture(t)
	ed := portal.NewEditor(portal.Clubs, nil, f.uploader, f.cleaner, portal.ForTenant("tenant-a"))

	logo, err := ed.Attachment("logo_url")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a/clubs/logos", logo.Constraints().Folder)
	field, ok := portal.Clubs.Field("logo_url")
	require.True(t, ok)
	assert.Equal(t, "clubs/logos", field.Attachment.Folder)
	assert.False(t, ed.Uploading())

	result, err := logo.Upload(context.Background(), pngFile("logo.png", 1024))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Path, "tenant-a/clubs/logos/"))
	assert.False(t, ed.Uploading())
}
