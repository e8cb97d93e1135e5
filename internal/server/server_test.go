package server

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartadl/internal/auth"
	"smartadl/internal/db"
	"smartadl/internal/harness"
	"smartadl/internal/history"
	"smartadl/internal/prompts"
)

type fakeAssistant struct {
	answer     string
	suggestion string
	err        error
}

func (f *fakeAssistant) Ask(ctx context.Context, model, code, question string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.answer, f.suggestion, nil
}

func (f *fakeAssistant) Optimize(ctx context.Context, model, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.suggestion, nil
}

type fakeGenerator struct {
	answers map[string]string
}

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	answer, ok := f.answers[prompt]
	if !ok {
		return "", fmt.Errorf("no canned answer for %q", prompt)
	}
	return answer, nil
}

type fixture struct {
	srv      *Server
	accounts *auth.Service
	prompts  *prompts.Service
	history  *history.Store
}

func newTestServer(t *testing.T, assistant Assistant, gen harness.Generator) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	queries := db.NewQueries(database)
	accounts := auth.New(queries)
	promptStore := prompts.New(queries)
	historyStore := history.New(queries)
	h := harness.New(promptStore, historyStore, gen, "test-model")

	srv, err := New(zap.NewNop(), accounts, promptStore, historyStore, h, assistant, "assistant-model")
	require.NoError(t, err)
	return &fixture{srv: srv, accounts: accounts, prompts: promptStore, history: historyStore}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, user string) {
	t.Helper()
	created, err := f.accounts.Register(user, "pw")
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.accounts.SaveSession(user))
}

func TestRegisterAndLoginFlow(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})

	rec := f.do(t, "POST", "/register", url.Values{"username": {"alice"}, "password": {"pw"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account created")

	rec = f.do(t, "POST", "/login", url.Values{"username": {"alice"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/editor", rec.Header().Get("Location"))

	user, ok, err := f.accounts.LoadSession()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestLoginBadCredentialsIsGeneric(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})
	created, err := f.accounts.Register("alice", "pw")
	require.NoError(t, err)
	require.True(t, created)

	unknown := f.do(t, "POST", "/login", url.Values{"username": {"nobody"}, "password": {"pw"}})
	wrong := f.do(t, "POST", "/login", url.Values{"username": {"alice"}, "password": {"bad"}})

	assert.Contains(t, unknown.Body.String(), "Incorrect username or password")
	assert.Contains(t, wrong.Body.String(), "Incorrect username or password")
}

func TestRegisterDuplicate(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})
	f.do(t, "POST", "/register", url.Values{"username": {"alice"}, "password": {"pw"}})

	rec := f.do(t, "POST", "/register", url.Values{"username": {"alice"}, "password": {"other"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already taken")
}

func TestEditorRequiresSession(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})

	rec := f.do(t, "GET", "/editor", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/account", rec.Header().Get("Location"))
}

func TestEditorAskAndAccept(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{answer: "Use var.", suggestion: "var x = 1"}, &fakeGenerator{})
	f.login(t, "alice")

	rec := f.do(t, "POST", "/editor/ask", url.Values{"code": {""}, "question": {"How do I declare a variable?"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Use var.")
	assert.Contains(t, rec.Body.String(), "var x = 1")

	rec = f.do(t, "POST", "/editor/accept", url.Values{
		"suggestion": {"var x = 1"},
		"question":   {"How do I declare a variable?"},
		"answer":     {"Use var."},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	adl, err := f.history.ListADL("alice")
	require.NoError(t, err)
	require.Len(t, adl, 1)
	assert.Equal(t, "var x = 1", adl[0].Code)
	assert.Equal(t, "How do I declare a variable?", adl[0].Question)
}

func TestAskFailureIsLocalized(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{err: fmt.Errorf("quota exceeded")}, &fakeGenerator{})
	f.login(t, "alice")

	rec := f.do(t, "POST", "/editor/ask", url.Values{"code": {"x"}, "question": {"why?"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota exceeded")
}

func TestOptimizeRecordsHistory(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{suggestion: "optimized code"}, &fakeGenerator{})
	f.login(t, "alice")

	rec := f.do(t, "POST", "/optimize", url.Values{"code": {"slow code"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optimized code")

	adl, err := f.history.ListADL("alice")
	require.NoError(t, err)
	require.Len(t, adl, 1)
	assert.Equal(t, "optimized code", adl[0].Code)
	assert.Empty(t, adl[0].Question)
}

func TestPromptTestEndToEnd(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{answers: map[string]string{"2+2?": "The answer is 4."}})
	f.login(t, "bob")

	_, err := f.prompts.Add("bob", "2+2?", "4")
	require.NoError(t, err)

	rec := f.do(t, "POST", "/prompts/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Correct answer")

	recorded, err := f.history.ListTests("bob")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].IsCorrect)
	assert.NotEmpty(t, recorded[0].DateTest)
}

func TestPromptImportRejectsBadBatch(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})
	f.login(t, "alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "prompts.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[{"prompt": "p", "expected": "e"}, {"prompt": "no expected"}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/prompts/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.srv.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid import")

	got, err := f.prompts.List("alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPromptExport(t *testing.T) {
	f := newTestServer(t, &fakeAssistant{}, &fakeGenerator{})
	f.login(t, "alice")

	id, err := f.prompts.Add("alice", "2+2?", "4")
	require.NoError(t, err)

	rec := f.do(t, "GET", fmt.Sprintf("/prompts/%d/export", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"prompt": "2+2?"`)

	// Another user cannot export the row.
	require.NoError(t, f.accounts.SaveSession("bob"))
	rec = f.do(t, "GET", fmt.Sprintf("/prompts/%d/export", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
