package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRequest describes one handler invocation.
type testRequest struct {
	method string
	target string
	body   any
	raw    io.Reader
	userID uuid.UUID
	params map[string]string
}

// serve runs h directly, faking what the router and auth middleware would
// have put in the context.
func serve(t *testing.T, h http.HandlerFunc, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	body := tr.raw
	if tr.body != nil {
		b, err := json.Marshal(tr.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	if tr.method == "" {
		tr.method = http.MethodGet
	}
	if tr.target == "" {
		tr.target = "/"
	}
	req := httptest.NewRequest(tr.method, tr.target, body)

	ctx := shared.SetTraceID(req.Context())
	if tr.userID != uuid.Nil {
		ctx = context.WithValue(ctx, shared.UserIDContextKey, tr.userID)
	}
	if len(tr.params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range tr.params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	w := httptest.NewRecorder()
	h(w, req.WithContext(ctx))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[shared.ErrorResponse](t, w).Error
}

func idParam(id uuid.UUID) map[string]string {
	return map[string]string{"id": id.String()}
}
