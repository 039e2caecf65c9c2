package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/resume-matcher/internal/pdftext"
	"github.com/spigell/resume-matcher/internal/pdftext/pdftexttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeScorer struct {
	mu    sync.Mutex
	score float64
	err   error
	calls []scoreCall
}

type scoreCall struct {
	jd     string
	resume string
}

func (f *fakeScorer) Score(_ context.Context, jd, resume string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, scoreCall{jd: jd, resume: resume})
	return f.score, f.err
}

func (f *fakeScorer) lastCall(t *testing.T) scoreCall {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.calls, "scorer was not called")
	return f.calls[len(f.calls)-1]
}

func (f *fakeScorer) called() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls) > 0
}

type fakeExtractor struct {
	text   string
	err    error
	called bool
}

func (f *fakeExtractor) Extract(_ context.Context, r io.ReaderAt, size int64) (string, error) {
	f.called = true
	if _, err := io.ReadAll(io.NewSectionReader(r, 0, size)); err != nil {
		return "", err
	}
	return f.text, f.err
}

func newTestServer(t *testing.T, cfg Config, scorer Scorer, extractor pdftext.Extractor) http.Handler {
	t.Helper()

	return New(cfg, Deps{
		Logger:    zap.NewNop(),
		Scorer:    scorer,
		Extractor: extractor,
	}).Handler()
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/get_score", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type multipartFile struct {
	name    string
	content []byte
}

func postMultipart(t *testing.T, h http.Handler, fields map[string]string, file *multipartFile) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(fieldFile, file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/get_score", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHome(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}, &fakeScorer{}, &fakeExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Resume Matcher API!", rec.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}, &fakeScorer{}, &fakeExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestScoreJSON(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 73.46}
	h := newTestServer(t, Config{}, scorer, &fakeExtractor{})

	rec := postJSON(t, h, `{
		"jd": "Go developer with Kubernetes",
		"resume": {"skills": ["Go", "Docker"], "experience": "5 years backend", "links": null}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"score":73.46}`, rec.Body.String())

	call := scorer.lastCall(t)
	assert.Equal(t, "Go developer with Kubernetes", call.jd)
	assert.Equal(t, "Go Docker\n5 years backend", call.resume)
}

func TestScoreJSONKeepsSectionOrder(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 10}
	h := newTestServer(t, Config{}, scorer, &fakeExtractor{})

	rec := postJSON(t, h, `{
		"resume": {"zeta": "last key first", "alpha": {"company": "Acme", "years": 3}},
		"jd": {"title": "SRE", "requirements": ["Linux", "Terraform"]}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	call := scorer.lastCall(t)
	assert.Equal(t, "SRE\nLinux Terraform", call.jd)
	assert.Equal(t, "last key first\nAcme 3", call.resume)
}

func TestScoreMissingData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "both absent", body: `{}`},
		{name: "jd absent", body: `{"resume": "Go developer"}`},
		{name: "resume absent", body: `{"jd": "Go developer"}`},
		{name: "empty strings", body: `{"jd": "", "resume": ""}`},
		{name: "empty objects", body: `{"jd": {}, "resume": {}}`},
		{name: "only unsupported sections", body: `{"jd": {"salary": 1000}, "resume": "Go"}`},
		{name: "malformed json", body: `{"jd": "Go"`},
		{name: "top level array", body: `["Go", "Go"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scorer := &fakeScorer{}
			h := newTestServer(t, Config{}, scorer, &fakeExtractor{})

			rec := postJSON(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, msgMissingData, decodeError(t, rec))
			assert.False(t, scorer.called(), "scorer must not be called")
		})
	}
}

func TestScoreUnknownContentType(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}, &fakeScorer{}, &fakeExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/get_score", strings.NewReader("jd and resume"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingData, decodeError(t, rec))
}

func TestScoreForm(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 50}
	h := newTestServer(t, Config{}, scorer, &fakeExtractor{})

	form := url.Values{}
	form.Set("jd", "Python developer")
	form.Set("resume", `{"skills": ["Python", "Django"], "summary": "Backend engineer"}`)

	req := httptest.NewRequest(http.MethodPost, "/get_score", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	call := scorer.lastCall(t)
	assert.Equal(t, "Python developer", call.jd)
	assert.Equal(t, "Python Django\nBackend engineer", call.resume)
}

func TestScoreMultipartMergesPDF(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 88.5}
	extractor := &fakeExtractor{text: "Senior Go engineer at Acme"}
	h := newTestServer(t, Config{}, scorer, extractor)

	rec := postMultipart(t, h,
		map[string]string{"jd": "Go engineer", "resume": `{"skills": ["Go"]}`},
		&multipartFile{name: "CV.PDF", content: []byte("%PDF-1.4")},
	)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"score":88.5}`, rec.Body.String())
	assert.True(t, extractor.called)

	call := scorer.lastCall(t)
	assert.Equal(t, "Go engineer", call.jd)
	assert.Equal(t, "Go\nSenior Go engineer at Acme", call.resume)
}

func TestScoreMultipartFileOnly(t *testing.T) {
	t.Parallel()

	extractor, err := pdftext.New(pdftext.BackendPDFCPU)
	require.NoError(t, err)

	scorer := &fakeScorer{score: 42}
	h := newTestServer(t, Config{}, scorer, extractor)

	rec := postMultipart(t, h,
		map[string]string{"jd": "Kafka engineer"},
		&multipartFile{name: "resume.pdf", content: pdftexttest.Build("Kafka and PostgreSQL")},
	)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, scorer.lastCall(t).resume, "Kafka and PostgreSQL")
}

func TestScoreRejectsNonPDF(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{}
	extractor := &fakeExtractor{text: "ignored"}
	h := newTestServer(t, Config{}, scorer, extractor)

	rec := postMultipart(t, h,
		map[string]string{"jd": "Go engineer", "resume": "Go"},
		&multipartFile{name: "resume.docx", content: pdftexttest.Build("valid pdf inside")},
	)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgOnlyPDF, decodeError(t, rec))
	assert.False(t, extractor.called)
	assert.False(t, scorer.called())
}

func TestScoreCorruptPDF(t *testing.T) {
	t.Parallel()

	extractor, err := pdftext.New(pdftext.BackendLedongthuc)
	require.NoError(t, err)

	scorer := &fakeScorer{}
	h := newTestServer(t, Config{}, scorer, extractor)

	rec := postMultipart(t, h,
		map[string]string{"jd": "Go engineer"},
		&multipartFile{name: "resume.pdf", content: []byte("definitely not a pdf")},
	)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeError(t, rec), "Failed to process PDF:"))
	assert.False(t, scorer.called())
}

func TestScoreExtractorErrorMessageSurfaced(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{err: &pdftext.ExtractionError{Err: errors.New("file is encrypted")}}
	h := newTestServer(t, Config{}, &fakeScorer{}, extractor)

	rec := postMultipart(t, h,
		map[string]string{"jd": "Go engineer"},
		&multipartFile{name: "resume.pdf", content: []byte("%PDF-1.7")},
	)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	msg := decodeError(t, rec)
	assert.True(t, strings.HasPrefix(msg, "Failed to process PDF: "))
	assert.Contains(t, msg, "file is encrypted")
}

func TestScoreLogsDroppedSectionsInOrder(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	h := New(Config{}, Deps{
		Logger:    zap.New(core),
		Scorer:    &fakeScorer{score: 1},
		Extractor: &fakeExtractor{},
	}).Handler()

	for i := 0; i < 5; i++ {
		rec := postJSON(t, h, `{
			"resume": {"age": 30, "skills": ["Go"]},
			"jd": {"title": "SRE", "salary": 5000, "remote": true}
		}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	entries := logs.FilterMessage("dropping section without text").AllUntimed()
	require.Len(t, entries, 15)

	for i := 0; i < len(entries); i += 3 {
		want := []struct{ side, section, value string }{
			{fieldJD, "salary", "5000"},
			{fieldJD, "remote", "true"},
			{fieldResume, "age", "30"},
		}
		for j, w := range want {
			fields := entries[i+j].ContextMap()
			assert.Equal(t, w.side, fields["side"])
			assert.Equal(t, w.section, fields["section"])
			assert.Equal(t, w.value, fields["value"])
		}
	}
}

func TestScoreEngineFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	scorer := &fakeScorer{err: errors.New("engine is down")}
	h := New(Config{}, Deps{
		Logger:    zap.New(core),
		Scorer:    scorer,
		Extractor: &fakeExtractor{},
	}).Handler()

	rec := postJSON(t, h, `{"jd": "Go", "resume": "Go"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgScoreFailed, decodeError(t, rec))
	assert.Equal(t, 1, logs.FilterMessage("calculating score").Len())
}

func TestScoreBodyTooLarge(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{}
	h := newTestServer(t, Config{MaxUploadSize: 64}, scorer, &fakeExtractor{})

	rec := postJSON(t, h, `{"jd": "`+strings.Repeat("go ", 100)+`", "resume": "Go"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, scorer.called())
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}, &fakeScorer{}, &fakeExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	h := New(Config{}, Deps{Logger: zap.New(core), Scorer: &fakeScorer{}, Extractor: &fakeExtractor{}}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").AllUntimed()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "/healthz", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 1}, &fakeScorer{}, &fakeExtractor{})

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{AllowedOrigins: []string{"https://example.com"}}, &fakeScorer{}, &fakeExtractor{})

	req := httptest.NewRequest(http.MethodOptions, "/get_score", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s := New(Config{Listen: "127.0.0.1:0"}, Deps{Scorer: &fakeScorer{}, Extractor: &fakeExtractor{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)
}
