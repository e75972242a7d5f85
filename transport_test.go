package base

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qgg21ypuLukeS/NucloFlo/config"
	"github.com/qgg21ypuLukeS/NucloFlo/service"
)

type searcherFunc func(ctx context.Context, program, database, query string) ([]byte, error)

func (f searcherFunc) Search(ctx context.Context, program, database, query string) ([]byte, error) {
	return f(ctx, program, database, query)
}

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadBytes:  2 * 1024 * 1024,
		RequestDeadline: time.Minute,
		TemplatesGlob:   "web/templates/*.html",
	}
}

func newHandler(t *testing.T, search searcherFunc, cfg *config.Config) http.Handler {
	t.Helper()
	svc := service.NewBlastService(log.NewNopLogger(), search, "nt")
	return MakeHttpHandler(svc, cfg)
}

// multipartBody builds a multipart form with the given text fields and, if
// fileField is non-empty, one file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func postRunBlast(t *testing.T, h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run_blast", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) service.ErrorResponse {
	t.Helper()
	var resp service.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRunBlastMissingFile(t *testing.T) {
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		t.Fatal("searcher must not be called")
		return nil, nil
	}, testConfig())

	body, ct := multipartBody(t, map[string]string{"blastType": "blastn"}, "", "", nil)
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'file' in request", decodeErrorBody(t, rec).Error)
}

func TestRunBlastMissingBlastType(t *testing.T) {
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		t.Fatal("searcher must not be called")
		return nil, nil
	}, testConfig())

	body, ct := multipartBody(t, nil, "file", "seq.fasta", []byte(">q\nACGT\n"))
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'blastType' in form data", decodeErrorBody(t, rec).Error)
}

func TestRunBlastUnsupportedType(t *testing.T) {
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		t.Fatal("searcher must not be called")
		return nil, nil
	}, testConfig())

	body, ct := multipartBody(t, map[string]string{"blastType": "megablast"}, "file", "seq.fasta", []byte(">q\nACGT\n"))
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported blastType 'megablast'", decodeErrorBody(t, rec).Error)
}

func TestRunBlastSuccess(t *testing.T) {
	const document = `<?xml version="1.0"?><BlastOutput></BlastOutput>`
	var gotProgram, gotDatabase, gotQuery string

	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		gotProgram, gotDatabase, gotQuery = program, database, query
		return []byte(document), nil
	}, testConfig())

	body, ct := multipartBody(t, map[string]string{"blastType": "blastn"}, "file", "seq.fasta", []byte(">q\nACGT\n"))
	rec := postRunBlast(t, h, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, document, rec.Body.String())
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=blast_result.xml", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "blastn", gotProgram)
	assert.Equal(t, "nt", gotDatabase)
	assert.Equal(t, ">q\nACGT\n", gotQuery)
}

func TestRunBlastRemoteFailure(t *testing.T) {
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		return nil, errors.New("timeout")
	}, testConfig())

	body, ct := multipartBody(t, map[string]string{"blastType": "blastp"}, "file", "seq.fasta", []byte(">q\nMKQR\n"))
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeErrorBody(t, rec)
	assert.Equal(t, "Remote BLAST failed", resp.Error)
	assert.Equal(t, "timeout", resp.Details)
}

func TestRunBlastOversizeUpload(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 16
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		t.Fatal("searcher must not be called")
		return nil, nil
	}, cfg)

	big := bytes.Repeat([]byte("A"), 64)
	body, ct := multipartBody(t, map[string]string{"blastType": "blastn"}, "file", "seq.fasta", big)
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrFileTooLarge.Error(), decodeErrorBody(t, rec).Error)
}

func TestRunBlastBinaryUpload(t *testing.T) {
	h := newHandler(t, func(ctx context.Context, program, database, query string) ([]byte, error) {
		t.Fatal("searcher must not be called")
		return nil, nil
	}, testConfig())

	body, ct := multipartBody(t, map[string]string{"blastType": "blastn"}, "file", "seq.bin", []byte{0xff, 0xfe, 0xfd})
	rec := postRunBlast(t, h, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrNotUTF8.Error(), decodeErrorBody(t, rec).Error)
}

func TestTryPage(t *testing.T) {
	h := newHandler(t, nil, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/try?anything=ignored", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/run_blast")
}

func TestHealthz(t *testing.T) {
	h := newHandler(t, nil, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}
