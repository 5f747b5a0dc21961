package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"upload in progress", portal.ErrUploadInProgress, http.StatusConflict, CodeUploadInProgress},
		{"wrapped upload in progress", fmt.Errorf("save clubs: %w", portal.ErrUploadInProgress), http.StatusConflict, CodeUploadInProgress},
		{"storage write", fmt.Errorf("%w: bucket gone", media.ErrStorageWriteFailed), http.StatusBadGateway, CodeStorageWriteFailed},
		{"unsupported type", media.ErrUnsupportedType, http.StatusUnsupportedMediaType, CodeUnsupportedType},
		{"not found", portal.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"validation", &portal.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusBadRequest, CodeValidation},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}
