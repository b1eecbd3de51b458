package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultPassword is the password of every built user unless overridden.
const DefaultPassword = "testpassword123"

// SampleTree is a minimal valid output_tree.json.
const SampleTree = `{"root":{"content":[{"type":"text","content":"Overview"}],"children":[{"Section 1":{"content":[{"type":"table","content":"<table></table>"}],"children":[]}},{"Section 2":{"content":[],"children":[]}}]}}`

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	email    string
	password string
	groups   []uuid.UUID
	inactive bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	name := fmt.Sprintf("testuser_%s", uuid.New().String()[:8])
	return &UserBuilder{
		username: name,
		email:    name + "@example.com",
		password: DefaultPassword,
	}
}

// WithUsername sets the username and derives the email from it
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	b.email = name + "@example.com"
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// InGroups adds memberships
func (b *UserBuilder) InGroups(groups ...*domain.UserGroup) *UserBuilder {
	for _, g := range groups {
		b.groups = append(b.groups, g.ID)
	}
	return b
}

// Inactive builds a deactivated user
func (b *UserBuilder) Inactive() *UserBuilder {
	b.inactive = true
	return b
}

// Build stores the user and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, repos *repository.Repositories) (*domain.User, string) {
	t.Helper()

	hash, err := TestHasher().Hash(b.password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		Email:        b.email,
		PasswordHash: hash,
		GroupIDs:     b.groups,
		IsActive:     !b.inactive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := repos.User.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// NewGroup stores an active group named name
func NewGroup(t *testing.T, repos *repository.Repositories, name string) *domain.UserGroup {
	t.Helper()

	group := &domain.UserGroup{
		ID:        uuid.New(),
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repos.Group.Create(context.Background(), group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return group
}

// DocumentBuilder creates a document folder on disk and, unless Unregistered
// is called, its record
type DocumentBuilder struct {
	id         string
	tree       string
	images     []string
	pdf        bool
	groups     []uuid.UUID
	inactive   bool
	unregister bool
	noFolder   bool
}

func NewDocumentBuilder(id string) *DocumentBuilder {
	return &DocumentBuilder{id: id, tree: SampleTree}
}

// WithTree writes body as output_tree.json
func (b *DocumentBuilder) WithTree(body string) *DocumentBuilder {
	b.tree = body
	return b
}

// WithoutTree leaves output_tree.json out of the folder
func (b *DocumentBuilder) WithoutTree() *DocumentBuilder {
	b.tree = ""
	return b
}

func (b *DocumentBuilder) WithImages(names ...string) *DocumentBuilder {
	b.images = append(b.images, names...)
	return b
}

func (b *DocumentBuilder) WithPDF() *DocumentBuilder {
	b.pdf = true
	return b
}

// SharedWith puts the groups in the ACL
func (b *DocumentBuilder) SharedWith(groups ...*domain.UserGroup) *DocumentBuilder {
	for _, g := range groups {
		b.groups = append(b.groups, g.ID)
	}
	return b
}

func (b *DocumentBuilder) Inactive() *DocumentBuilder {
	b.inactive = true
	return b
}

// Unregistered creates only the folder
func (b *DocumentBuilder) Unregistered() *DocumentBuilder {
	b.unregister = true
	return b
}

// WithoutFolder creates only the record
func (b *DocumentBuilder) WithoutFolder() *DocumentBuilder {
	b.noFolder = true
	return b
}

func (b *DocumentBuilder) Build(t *testing.T, repos *repository.Repositories, store *docstore.Store) *domain.Document {
	t.Helper()

	dir := filepath.Join(store.Root, b.id)
	if !b.noFolder {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create document folder: %v", err)
		}
		if b.tree != "" {
			writeFile(t, filepath.Join(dir, docstore.OutputTreeFilename), b.tree)
		}
		for _, name := range b.images {
			writeFile(t, filepath.Join(dir, name), "image:"+name)
		}
		if b.pdf {
			writeFile(t, filepath.Join(store.PDFRoot, b.id+".pdf"), "%PDF-1.4 "+b.id)
		}
	}

	if b.unregister {
		return nil
	}

	doc := &domain.Document{
		ID:        b.id,
		Name:      b.id,
		FilePath:  dir,
		GroupIDs:  b.groups,
		Metadata:  datatypes.NewJSONType(domain.DocumentMetadata{Tags: []string{"test"}}),
		IsActive:  !b.inactive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repos.Document.Create(context.Background(), doc); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	return doc
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Envelope is the decoded JSON body of every API response
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

// Do sends a JSON request, authenticated when token is non-empty
func (ts *TestServer) Do(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()

	req := CreateAuthenticatedRequest(t, method, url, body, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Login authenticates through the API and returns the session token
func (ts *TestServer) Login(t *testing.T, username, password string) string {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, ts.APIURL("/auth/login"), map[string]string{
		"username": username,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login failed with status %d: %s", resp.StatusCode, body)
	}

	var data struct {
		SessionToken string `json:"sessionToken"`
	}
	DecodeData(t, resp, &data)
	return data.SessionToken
}

// CreateAuthenticatedRequest creates an HTTP request with auth header
func CreateAuthenticatedRequest(t *testing.T, method, url string, body any, token string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
