package files

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGetter struct {
	file tgbotapi.File
	err  error
}

func (s stubGetter) GetFile(tgbotapi.FileConfig) (tgbotapi.File, error) {
	return s.file, s.err
}

func newTestService(t *testing.T, getter fileGetter, body string, status int) *FileService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return newFileService(getter, srv.Client(), func(f tgbotapi.File) string {
		return srv.URL + "/" + f.FilePath
	})
}

func TestFetch_Document(t *testing.T) {
	fs := newTestService(t, stubGetter{file: tgbotapi.File{FileID: "f1", FilePath: "documents/file_1.pdf"}}, "%PDF-1.4", http.StatusOK)

	f, err := fs.Fetch(context.Background(), "f1", "slip.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "slip.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.MediaKind)
	assert.Equal(t, []byte("%PDF-1.4"), f.Data)
}

func TestFetch_PhotoGetsGeneratedName(t *testing.T) {
	fs := newTestService(t, stubGetter{file: tgbotapi.File{FileID: "p1", FilePath: "photos/file_2"}}, "\xff\xd8\xff\xe0", http.StatusOK)

	f, err := fs.Fetch(context.Background(), "p1", "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.Name, ".jpg"), f.Name)
	assert.Equal(t, "image/jpeg", f.MediaKind)
}

func TestFetch_Errors(t *testing.T) {
	fs := newTestService(t, stubGetter{err: errors.New("bad file id")}, "", http.StatusOK)
	_, err := fs.Fetch(context.Background(), "x", "", "")
	require.Error(t, err)

	fs = newTestService(t, stubGetter{file: tgbotapi.File{FilePath: "a.pdf"}}, "", http.StatusNotFound)
	_, err = fs.Fetch(context.Background(), "x", "", "")
	require.Error(t, err)

	fs = newTestService(t, stubGetter{file: tgbotapi.File{FilePath: "a.pdf", FileSize: maxFileSize + 1}}, "", http.StatusOK)
	_, err = fs.Fetch(context.Background(), "x", "", "")
	require.Error(t, err)
}
