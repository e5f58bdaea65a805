package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/platform/filestore"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tinyPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newEssayHandler(t *testing.T, grading bool, maxBytes int64) (*EssayHandler, *mocks.MockEventEmitter) {
	t.Helper()
	files, err := filestore.New(t.TempDir(), maxBytes, discardLogger())
	require.NoError(t, err)
	emitter := &mocks.MockEventEmitter{}
	svc := service.NewEssayService(mocks.NewMockEssayStore(), files, emitter, grading, discardLogger())
	return NewEssayHandler(svc, maxBytes, discardLogger()), emitter
}

func upload(t *testing.T, h *EssayHandler, user uuid.UUID, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return serve(t, func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("Content-Type", mw.FormDataContentType())
		h.Upload(w, r)
	}, testRequest{method: http.MethodPost, raw: &body, userID: user})
}

func TestEssayUpload(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		data       []byte
		wantStatus int
	}{
		{name: "png", field: "file", filename: "scan.png", data: tinyPNG, wantStatus: http.StatusCreated},
		{name: "plain text", field: "file", filename: "notes.txt", data: []byte("just words"), wantStatus: http.StatusUnsupportedMediaType},
		{name: "too large", field: "file", filename: "big.png", data: append(append([]byte{}, tinyPNG...), make([]byte, 4096)...), wantStatus: http.StatusRequestEntityTooLarge},
		{name: "wrong field", field: "upload", filename: "scan.png", data: tinyPNG, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newEssayHandler(t, false, 1024)
			w := upload(t, h, uuid.New(), tc.field, tc.filename, tc.data)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus == http.StatusCreated {
				essay := decode[domain.Essay](t, w)
				assert.Equal(t, "scan.png", essay.Filename)
				assert.Equal(t, domain.EssayStatusUploaded, essay.Status)
				assert.NotContains(t, w.Body.String(), "storage_path")
			}
		})
	}
}

func TestEssayListGetGrade(t *testing.T) {
	h, emitter := newEssayHandler(t, true, 1<<20)
	owner, stranger := uuid.New(), uuid.New()

	w := upload(t, h, owner, "file", "scan.png", tinyPNG)
	require.Equal(t, http.StatusCreated, w.Code)
	essay := decode[domain.Essay](t, w)

	w = serve(t, h.List, testRequest{userID: owner})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Essay](t, w), 1)

	w = serve(t, h.List, testRequest{userID: stranger})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	w = serve(t, h.Get, testRequest{userID: stranger, params: idParam(essay.ID)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, h.Grade, testRequest{method: http.MethodPost, userID: owner, params: idParam(essay.ID)})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, domain.EssayStatusGrading, decode[domain.Essay](t, w).Status)
	require.Len(t, emitter.Emitted(), 1)
	assert.Equal(t, events.TypeEssayGrading, emitter.Emitted()[0].Type)

	w = serve(t, h.Grade, testRequest{method: http.MethodPost, userID: owner, params: idParam(essay.ID)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(t, h.Get, testRequest{userID: owner, params: idParam(uuid.New())})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEssayGradeWithoutLLM(t *testing.T) {
	h, _ := newEssayHandler(t, false, 1<<20)
	owner := uuid.New()
	w := upload(t, h, owner, "file", "scan.png", tinyPNG)
	require.Equal(t, http.StatusCreated, w.Code)
	essay := decode[domain.Essay](t, w)

	w = serve(t, h.Grade, testRequest{method: http.MethodPost, userID: owner, params: idParam(essay.ID)})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Essay grading is not configured", errorMessage(t, w))
}
