package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sacoche_back_end/internal/shop"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &shop.ValidationError{Field: "address", Message: "obligatoire"}, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("lecture: %w", shop.ErrNotFound), http.StatusNotFound},
		{"forbidden", shop.ErrForbidden, http.StatusForbidden},
		{"conflict", shop.ErrConflict, http.StatusConflict},
		{"anything else", errors.New("scylla: timeout"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.NotContains(t, w.Body.String(), "scylla")
		})
	}
}

type recordingWriter struct {
	err     error
	written []interface{}
}

func (w *recordingWriter) WriteJSON(v interface{}) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, v)
	return nil
}

func TestSendStopsOnWriteError(t *testing.T) {
	ok := &recordingWriter{}
	assert.True(t, send(ok, gin.H{"type": "connected"}))
	assert.Len(t, ok.written, 1)

	broken := &recordingWriter{err: errors.New("websocket: close sent")}
	assert.False(t, send(broken, gin.H{"type": "connected"}))
	assert.Empty(t, broken.written)
}
