package respond

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

func TestUpstreamStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("wrap: %w", crmapi.ErrNotFound), http.StatusNotFound},
		{"backend 404", &crmapi.HTTPError{Op: "x", StatusCode: 404}, http.StatusNotFound},
		{"backend 403", &crmapi.HTTPError{Op: "x", StatusCode: 403}, http.StatusForbidden},
		{"backend 500", &crmapi.HTTPError{Op: "x", StatusCode: 500}, http.StatusBadGateway},
		{"application", &crmapi.ApplicationError{Op: "x", Message: "no"}, http.StatusBadGateway},
		{"transport", &crmapi.TransportError{Op: "x"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UpstreamStatus(tt.err))
		})
	}
}

func TestFieldsBody(t *testing.T) {
	w := httptest.NewRecorder()
	Fields(w, "invalid form", map[string]string{"productId": "Product is required"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"invalid form","fields":{"productId":"Product is required"}}`, w.Body.String())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"x","b":"y"}`))
	var dst struct {
		A string `json:"a"`
	}
	require.Error(t, Decode(r, &dst))
}
