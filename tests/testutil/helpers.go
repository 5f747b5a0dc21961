package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

// PNG returns size bytes starting with a PNG signature
func PNG(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	return data
}

// Do sends an authenticated request to the portal API
func (s *TestServer) Do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+"/api/v1"+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// DoJSON sends body as JSON
func (s *TestServer) DoJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return s.Do(t, method, path, bytes.NewReader(data), "application/json")
}

// CreateRecord creates a record and returns it, failing the test on any other status
func (s *TestServer) CreateRecord(t *testing.T, entity string, values map[string]any) portal.Record {
	t.Helper()
	resp := s.DoJSON(t, http.MethodPost, "/"+entity, values)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return Decode[portal.Record](t, resp)
}

// UpdateRecord applies values to a record
func (s *TestServer) UpdateRecord(t *testing.T, entity, id string, values map[string]any) portal.Record {
	t.Helper()
	resp := s.DoJSON(t, http.MethodPut, "/"+entity+"/"+id, values)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return Decode[portal.Record](t, resp)
}

// Upload posts data as the "file" part to an attachment field
func (s *TestServer) Upload(t *testing.T, entity, field, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.Do(t, http.MethodPost, "/"+entity+"/attachments/"+field, &buf, mw.FormDataContentType())
}

// UploadPNG uploads a PNG and returns the stored attachment
func (s *TestServer) UploadPNG(t *testing.T, entity, field string, size int) media.Result {
	t.Helper()
	resp := s.Upload(t, entity, field, "image.png", "image/png", PNG(size))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return Decode[media.Result](t, resp)
}

// Decode reads a JSON body into T
func Decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
