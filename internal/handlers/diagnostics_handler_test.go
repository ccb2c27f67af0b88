package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleLogAlwaysAnswers204(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		body    string
	}{
		{"enabled valid", true, `{"name":"widget_error","message":"boom"}`},
		{"enabled malformed", true, `{not json`},
		{"disabled", false, `{"name":"widget_error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewDiagnosticsHandler(tc.enabled, zap.NewNop())
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.HandleLog(rec, req)
			assert.Equal(t, http.StatusNoContent, rec.Code)
		})
	}
}
