package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ada-engine/internal/application/port/input"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
	"ada-engine/internal/usecase/access"
	"ada-engine/internal/usecase/apikey"
	"ada-engine/internal/usecase/ingestion"
)

type memKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]entity.APIKey
}

func (m *memKeys) Create(_ context.Context, key entity.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.ID] = key
	return nil
}

func (m *memKeys) ListActive(_ context.Context, projectID uuid.UUID) ([]entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.APIKey
	for _, k := range m.keys {
		if k.ProjectID == projectID && k.IsActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memKeys) FindActiveByHash(_ context.Context, hashed string) (*entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.HashedKey == hashed && k.IsActive {
			return &k, nil
		}
	}
	return nil, entity.ErrAPIKeyNotFound
}

func (m *memKeys) Deactivate(_ context.Context, projectID, keyID, revokerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[keyID]
	if !ok || k.ProjectID != projectID || !k.IsActive {
		return entity.ErrAPIKeyNotFound
	}
	k.IsActive = false
	k.RevokerUserID = &revokerID
	m.keys[keyID] = k
	return nil
}

type memProjects map[uuid.UUID]entity.Project

func (m memProjects) Get(_ context.Context, id uuid.UUID) (*entity.Project, error) {
	p, ok := m[id]
	if !ok {
		return nil, entity.ErrProjectNotFound
	}
	return &p, nil
}

type fakeIdentity struct {
	users map[string]*entity.User
	roles map[uuid.UUID]map[uuid.UUID]entity.Role
}

func (f *fakeIdentity) Authenticate(_ context.Context, token string) (*entity.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, entity.ErrUnauthenticated
	}
	return u, nil
}

func (f *fakeIdentity) OrganizationRole(_ context.Context, user *entity.User, orgID uuid.UUID) (entity.Role, error) {
	role, ok := f.roles[orgID][user.ID]
	if !ok {
		return "", entity.ErrNoOrganizationAccess
	}
	return role, nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]map[uuid.UUID]entity.IngestionTaskUpdate
}

func (m *memTasks) Create(_ context.Context, orgID uuid.UUID, t entity.IngestionTaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks[orgID] == nil {
		m.tasks[orgID] = map[uuid.UUID]entity.IngestionTaskUpdate{}
	}
	m.tasks[orgID][t.ID] = t
	return nil
}

func (m *memTasks) List(_ context.Context, orgID uuid.UUID) ([]entity.IngestionTaskResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.IngestionTaskResponse
	for _, t := range m.tasks[orgID] {
		out = append(out, entity.IngestionTaskResponse{IngestionTaskUpdate: t})
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, orgID uuid.UUID, t entity.IngestionTaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[orgID][t.ID]; !ok {
		return entity.ErrTaskNotFound
	}
	m.tasks[orgID][t.ID] = t
	return nil
}

func (m *memTasks) Delete(_ context.Context, orgID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[orgID][id]; !ok {
		return entity.ErrTaskNotFound
	}
	delete(m.tasks[orgID], id)
	return nil
}

type memQueue struct {
	mu   sync.Mutex
	msgs []entity.IngestionQueueMessage
}

func (q *memQueue) Enqueue(_ context.Context, msg entity.IngestionQueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

type echoAgent struct {
	projectSeen string
}

func (a *echoAgent) Execute(ctx context.Context, p *entity.AgentPayload) (*entity.AgentPayload, error) {
	a.projectSeen = service.ProjectIDFrom(ctx)
	p.Messages = append(p.Messages, entity.Message{Role: entity.RoleAssistant, Content: "echo: " + p.LastMessage().Content})
	p.IsFinal = true
	return p, nil
}

type fixedPipelines struct{ agent *echoAgent }

func (f fixedPipelines) For(string) (input.AgentExecutor, error) { return f.agent, nil }

type fixture struct {
	router    http.Handler
	keys      *apikey.Service
	queue     *memQueue
	agent     *echoAgent
	orgID     uuid.UUID
	projectID uuid.UUID
	ingestKey string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	orgID, projectID := uuid.New(), uuid.New()
	admin, member := uuid.New(), uuid.New()

	identity := &fakeIdentity{
		users: map[string]*entity.User{
			"admin-token":  {ID: admin, Email: "admin@example.com", Token: "admin-token"},
			"member-token": {ID: member, Email: "member@example.com", Token: "member-token"},
			"nope-token":   {ID: uuid.New(), Token: "nope-token"},
		},
		roles: map[uuid.UUID]map[uuid.UUID]entity.Role{
			orgID: {admin: entity.RoleAdmin, member: entity.RoleMember},
		},
	}

	hasher, err := apikey.NewHasher("backend-secret")
	require.NoError(t, err)
	ingestKey := "ingest-secret"
	keys := apikey.NewService(&memKeys{keys: map[uuid.UUID]entity.APIKey{}}, hasher, hasher.Hash(ingestKey), nil)

	queue := &memQueue{}
	agent := &echoAgent{}
	deps := Deps{
		Identity:  identity,
		Access:    access.NewChecker(memProjects{projectID: {ID: projectID, Name: "docs", OrganizationID: orgID}}, identity, nil),
		APIKeys:   keys,
		Ingestion: ingestion.NewService(&memTasks{tasks: map[uuid.UUID]map[uuid.UUID]entity.IngestionTaskUpdate{}}, queue, nil),
		Pipelines: fixedPipelines{agent: agent},
	}

	return &fixture{
		router:    NewRouter(deps, opts),
		keys:      keys,
		queue:     queue,
		agent:     agent,
		orgID:     orgID,
		projectID: projectID,
		ingestKey: ingestKey,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	accessLog := zerolog.New(&buf)
	f := newFixture(t, Options{AccessLog: &accessLog, QuietRoutes: []string{"/health"}})

	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String())

	rec = f.do(t, http.MethodGet, "/auth/api-key", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var line struct {
		Message      string `json:"message"`
		HTTPResponse struct {
			Status int `json:"status"`
		} `json:"httpResponse"`
		HTTPRequest struct {
			RequestURL    string `json:"requestURL"`
			RequestMethod string `json:"requestMethod"`
		} `json:"httpRequest"`
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &line), buf.String())
	assert.Equal(t, "Response: 401 Client Error", line.Message)
	assert.Equal(t, http.StatusUnauthorized, line.HTTPResponse.Status)
	assert.Equal(t, http.MethodGet, line.HTTPRequest.RequestMethod)
}

func TestAPIKeyLifecycle(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/auth/api-key", entity.APIKeyCreateRequest{ProjectID: f.projectID, KeyName: "ci"}, bearer("member-token"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created entity.APIKeyCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.PrivateKey, apikey.KeyPrefix))

	rec = f.do(t, http.MethodGet, "/auth/api-key?project_id="+f.projectID.String(), nil, bearer("member-token"))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed entity.APIKeyGetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.APIKeys, 1)
	assert.Equal(t, created.KeyID, listed.APIKeys[0].KeyID)
	assert.Equal(t, "ci", listed.APIKeys[0].KeyName)

	// members may create and list, only admins may revoke
	del := entity.APIKeyDeleteRequest{KeyID: created.KeyID}
	rec = f.do(t, http.MethodDelete, "/auth/api-key?project_id="+f.projectID.String(), del, bearer("member-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You don't have access to this project", detail(t, rec))

	rec = f.do(t, http.MethodDelete, "/auth/api-key?project_id="+f.projectID.String(), del, bearer("admin-token"))
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted entity.APIKeyDeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, "API key deleted successfully", deleted.Message)

	rec = f.do(t, http.MethodDelete, "/auth/api-key?project_id="+f.projectID.String(), del, bearer("admin-token"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAuthErrors(t *testing.T) {
	f := newFixture(t, Options{})
	path := "/auth/api-key?project_id=" + f.projectID.String()

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
		detail  string
	}{
		{"no header", path, nil, http.StatusUnauthorized, "Not authenticated"},
		{"wrong scheme", path, map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, "Not authenticated"},
		{"bad token", path, bearer("forged"), http.StatusUnauthorized, "Failed to validate Supabase token"},
		{"not a member", path, bearer("nope-token"), http.StatusForbidden, "You don't have access to this project"},
		{"unknown project", "/auth/api-key?project_id=" + uuid.NewString(), bearer("admin-token"), http.StatusNotFound, "Project not found"},
		{"malformed project", "/auth/api-key?project_id=abc", bearer("admin-token"), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil, tt.headers)
			assert.Equal(t, tt.status, rec.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, detail(t, rec))
			}
		})
	}
}

func TestRunPipeline(t *testing.T) {
	f := newFixture(t, Options{})

	created, err := f.keys.Generate(context.Background(), f.projectID, "runner", uuid.New())
	require.NoError(t, err)

	body := runRequest{Messages: []entity.Message{{Role: entity.RoleUser, Content: "hello"}}}
	path := "/projects/" + f.projectID.String() + "/run"

	t.Run("quoted key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, body, map[string]string{"X-API-Key": `"` + created.PrivateKey + `"`})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out entity.AgentPayload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, out.IsFinal)
		require.Len(t, out.Messages, 2)
		assert.Equal(t, "echo: hello", out.Messages[1].Content)
		assert.Equal(t, f.projectID.String(), f.agent.projectSeen)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Missing API key", detail(t, rec))
	})

	t.Run("unknown key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, body, map[string]string{"X-API-Key": "ada_deadbeef"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid API key", detail(t, rec))
	})

	t.Run("key of another project", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/projects/"+uuid.NewString()+"/run", body, map[string]string{"X-API-Key": created.PrivateKey})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("empty conversation", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, runRequest{}, map[string]string{"X-API-Key": created.PrivateKey})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad role", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, `{"messages":[{"role":"robot","content":"x"}]}`, map[string]string{"X-API-Key": created.PrivateKey})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIngestionTasks(t *testing.T) {
	f := newFixture(t, Options{})
	base := "/ingestion_task/" + f.orgID.String()

	create := entity.IngestionTaskQueue{
		IngestionTask: entity.IngestionTask{SourceName: "handbook", SourceType: entity.SourceTypeLocal, Status: entity.TaskStatusCompleted},
	}

	rec := f.do(t, http.MethodPost, base, create, bearer("member-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code, "members cannot write")
	assert.Equal(t, "You don't have access to this organization", detail(t, rec))

	rec = f.do(t, http.MethodPost, base, create, bearer("admin-token"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created createTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, f.queue.msgs, 1)
	assert.Equal(t, created.ID, f.queue.msgs[0].TaskID)

	rec = f.do(t, http.MethodGet, base, nil, bearer("member-token"))
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []entity.IngestionTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, entity.TaskStatusPending, tasks[0].Status)

	update := entity.IngestionTaskUpdate{
		ID:            created.ID,
		IngestionTask: entity.IngestionTask{SourceName: "handbook", SourceType: entity.SourceTypeLocal, Status: entity.TaskStatusCompleted},
	}
	rec = f.do(t, http.MethodPatch, base, update, map[string]string{"X-Ingestion-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPatch, base, update, map[string]string{"X-Ingestion-API-Key": f.ingestKey})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	update.Status = "exploded"
	rec = f.do(t, http.MethodPatch, base, update, map[string]string{"X-Ingestion-API-Key": f.ingestKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, base+"/"+created.ID.String(), nil, bearer("admin-token"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, base+"/"+created.ID.String(), nil, bearer("admin-token"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Ingestion task not found", detail(t, rec))
}

func TestRateLimitAndBodyLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2, MaxBodyBytes: 64})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil, nil).Code)
	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	g := newFixture(t, Options{MaxBodyBytes: 64})
	big := `{"project_id":"` + g.projectID.String() + `","key_name":"` + strings.Repeat("k", 200) + `"}`
	rec = g.do(t, http.MethodPost, "/auth/api-key", big, bearer("admin-token"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(assert.AnError, "Failed to do it")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to do it", msg)

	status, _ = statusFor(access.ErrForbidden, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = statusFor(ingestion.ErrInvalidTask, "")
	assert.Equal(t, http.StatusBadRequest, status)
}
