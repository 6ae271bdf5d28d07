package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civiclens/webclient/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newResponder(t *testing.T) *Responder {
	t.Helper()
	renderer, err := views.New()
	require.NoError(t, err)
	return NewResponder(renderer, nil, zap.NewNop())
}

func TestRenderFailureFallsBackToRecoveryScreen(t *testing.T) {
	resp := newResponder(t)

	cases := []struct {
		name string
		page string
		data any
	}{
		{"unknown page", "missing", nil},
		{"template execution error", views.IssueDetail, struct{ Unrelated string }{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/citizen/issue/1", nil)
			resp.render(w, r, http.StatusOK, tc.page, views.Page{Title: "Issue", Data: tc.data})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), "Reload Page")
			assert.Contains(t, w.Body.String(), "Back to Safety")
			assert.NotContains(t, w.Body.String(), "Issue ID")
		})
	}
}

func TestRenderWritesStatusWithBody(t *testing.T) {
	resp := newResponder(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/missing", nil)

	resp.errorPage(w, r, http.StatusNotFound, ErrorView{Heading: "Issue not found", Message: "gone", Back: "/"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Issue not found")
}
