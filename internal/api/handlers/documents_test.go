package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/logging"
	"github.com/dom/document-viewer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Alice is in eng and D1 is shared with eng; Bob is only in ops.
func setupDocuments(t *testing.T) (ts *testutil.TestServer, alice, bob string) {
	t.Helper()
	ts = testutil.NewTestServer(t)

	eng := testutil.NewGroup(t, ts.Repos, "eng")
	ops := testutil.NewGroup(t, ts.Repos, "ops")
	testutil.NewDocumentBuilder("D1").SharedWith(eng).WithImages("p1.png", "p0.jpg").WithPDF().Build(t, ts.Repos, ts.Store)
	testutil.NewDocumentBuilder("D2").SharedWith(ops).Build(t, ts.Repos, ts.Store)

	a, pa := testutil.NewUserBuilder().WithUsername("alice").InGroups(eng).Build(t, ts.Repos)
	b, pb := testutil.NewUserBuilder().WithUsername("bob").InGroups(ops).Build(t, ts.Repos)
	return ts, ts.Login(t, a.Username, pa), ts.Login(t, b.Username, pb)
}

func TestDocumentHandler_List(t *testing.T) {
	ts, alice, bob := setupDocuments(t)

	resp := ts.Do(t, http.MethodGet, ts.APIURL("/documents"), nil, alice)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var docs []domain.DocumentSummary
	env := testutil.DecodeData(t, resp, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "D1", docs[0].ID)
	assert.True(t, docs[0].HasOutputTree)
	assert.True(t, docs[0].HasPDF)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	resp = ts.Do(t, http.MethodGet, ts.APIURL("/documents"), nil, bob)
	testutil.DecodeData(t, resp, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "D2", docs[0].ID)
}

func TestDocumentHandler_Get(t *testing.T) {
	ts, alice, bob := setupDocuments(t)

	tests := []struct {
		name           string
		path           string
		token          string
		expectedStatus int
		expectedMsg    string
	}{
		{name: "member reads tree", path: "/documents/D1", token: alice, expectedStatus: http.StatusOK},
		{name: "member lists images", path: "/documents/D1/images", token: alice, expectedStatus: http.StatusOK},
		{name: "outsider is forbidden", path: "/documents/D1", token: bob, expectedStatus: http.StatusForbidden, expectedMsg: "access denied"},
		{name: "outsider cannot list images", path: "/documents/D1/images", token: bob, expectedStatus: http.StatusForbidden, expectedMsg: "access denied"},
		{name: "unknown document", path: "/documents/D9", token: alice, expectedStatus: http.StatusForbidden},
		{name: "bad token", path: "/documents/D1", token: "garbage", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.Do(t, http.MethodGet, ts.APIURL(tt.path), nil, tt.token)
			if tt.expectedStatus == http.StatusOK {
				testutil.AssertStatusCode(t, resp, http.StatusOK)
				env := testutil.DecodeEnvelope(t, resp)
				assert.True(t, env.Success)
				assert.NotEmpty(t, env.Data)
				return
			}
			testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
		})
	}

	t.Run("images are sorted", func(t *testing.T) {
		resp := ts.Do(t, http.MethodGet, ts.APIURL("/documents/D1/images"), nil, alice)
		var images []string
		testutil.DecodeData(t, resp, &images)
		assert.Equal(t, []string{"p0.jpg", "p1.png"}, images)
	})

	t.Run("tree keeps labelled children", func(t *testing.T) {
		resp := ts.Do(t, http.MethodGet, ts.APIURL("/documents/D1"), nil, alice)
		var tree domain.DocumentTree
		testutil.DecodeData(t, resp, &tree)
		require.Len(t, tree.Root.Children, 2)
		assert.Equal(t, "Section 2", tree.Root.Children[1].Label)
	})
}

func TestDocumentHandler_Assets(t *testing.T) {
	ts, alice, bob := setupDocuments(t)

	get := func(t *testing.T, url, token string) *http.Response {
		t.Helper()
		return ts.Do(t, http.MethodGet, url, nil, token)
	}

	t.Run("image with bearer header", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/images/D1/p1.png", alice)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "image:p1.png", string(body))
	})

	t.Run("image with token query", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/images/D1/p1.png?token="+alice, "")
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	})

	t.Run("pdf with token query", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/pdfs/D1.pdf?token="+alice, "")
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	})

	t.Run("no token", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/images/D1/p1.png", "")
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "no authentication token provided")
	})

	t.Run("outsider", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/pdfs/D1.pdf?token="+bob, "")
		testutil.AssertErrorResponse(t, resp, http.StatusForbidden, "access denied")
	})

	t.Run("missing image", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/images/D1/p9.png", alice)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "file not found")
	})

	t.Run("non image file", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/images/D1/output_tree.json", alice)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "file not found")
	})

	t.Run("missing pdf", func(t *testing.T) {
		resp := get(t, ts.BaseURL()+"/pdfs/D1.txt", alice)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "file not found")
	})
}

func TestRouter_NotFoundAndHealth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := ts.Do(t, http.MethodGet, ts.BaseURL()+"/health", nil, "")
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	resp = ts.Do(t, http.MethodGet, ts.BaseURL()+"/nowhere", nil, "")
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "cannot GET /nowhere")
}

func TestDocumentHandler_TreeServedAsStored(t *testing.T) {
	const stored = `{"version": 2, "root": {"content": [{"type": "text", "content": "x", "page": 3}],
  "children": [{"A": {"content": [], "children": []}, "B": {"content": [], "children": []}}]}}`

	ts := testutil.NewTestServer(t)
	eng := testutil.NewGroup(t, ts.Repos, "eng")
	testutil.NewDocumentBuilder("D1").WithTree(stored).SharedWith(eng).Build(t, ts.Repos, ts.Store)
	alice, password := testutil.NewUserBuilder().WithUsername("alice").InGroups(eng).Build(t, ts.Repos)

	resp := ts.Do(t, http.MethodGet, ts.APIURL("/documents/D1"), nil, ts.Login(t, alice.Username, password))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	env := testutil.DecodeEnvelope(t, resp)

	var want bytes.Buffer
	require.NoError(t, json.Compact(&want, []byte(stored)))
	assert.Equal(t, want.String(), string(env.Data))
}

// lockedBuffer is written by the server goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRouter_RequestLogOmitsQueryToken(t *testing.T) {
	var logs lockedBuffer
	ts := testutil.NewTestServerWithLogger(t, logging.New(&logs, "info", "text"))

	eng := testutil.NewGroup(t, ts.Repos, "eng")
	testutil.NewDocumentBuilder("D1").SharedWith(eng).WithImages("p0.jpg").WithPDF().Build(t, ts.Repos, ts.Store)
	alice, password := testutil.NewUserBuilder().WithUsername("alice").InGroups(eng).Build(t, ts.Repos)
	token := ts.Login(t, alice.Username, password)

	resp := ts.Do(t, http.MethodGet, ts.BaseURL()+"/images/D1/p0.jpg?token="+token, nil, "")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp = ts.Do(t, http.MethodGet, ts.BaseURL()+"/pdfs/D1.pdf?token="+token, nil, "")
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "path=/pdfs/D1.pdf")
	}, 2*time.Second, 10*time.Millisecond)

	out := logs.String()
	assert.Contains(t, out, "path=/images/D1/p0.jpg")
	assert.NotContains(t, out, token)
	assert.NotContains(t, out, "token=")
}
