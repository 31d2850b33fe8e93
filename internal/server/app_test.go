package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	auditrepo "private-network-manager/backend/internal/audit/repository"
	authservice "private-network-manager/backend/internal/auth/service"
	provisiondomain "private-network-manager/backend/internal/provision/domain"
	"private-network-manager/backend/internal/provision/queue"
	"private-network-manager/backend/internal/security"
	servernodedomain "private-network-manager/backend/internal/servernode/domain"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	sessionrepo "private-network-manager/backend/internal/session/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	userdomain "private-network-manager/backend/internal/user/domain"
	userrepo "private-network-manager/backend/internal/user/repository"
	userconfigrepo "private-network-manager/backend/internal/userconfig/repository"
)

type fixture struct {
	app     *fiber.App
	users   *userrepo.MemoryRepository
	servers *servernoderepo.MemoryRepository
	configs *userconfigrepo.MemoryRepository
	store   *queue.MemoryStore
	admin   *userdomain.User
	member  *userdomain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := userrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()
	servers := servernoderepo.NewMemoryRepository()
	configs := userconfigrepo.NewMemoryRepository()
	store := queue.NewMemoryStore()
	hasher := security.NewHasher(4)
	tokens := security.NewTestTokenProvider()

	hash, err := hasher.Hash([]byte("Secret123!"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin, err := users.Create(context.Background(), &userdomain.User{
		Email: "admin@x.io", PasswordHash: hash, Role: userdomain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	member, err := users.Create(context.Background(), &userdomain.User{
		Email: "member@x.io", PasswordHash: hash, Role: userdomain.RoleMember,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	app := NewApp(Deps{
		Tokens:        tokens,
		Auth:          authservice.NewAuthService(users, sessions, hasher, tokens),
		Queue:         queue.NewQueue(store, queue.DefaultPolicy(), nil),
		Users:         users,
		Servers:       servers,
		Subscriptions: subscriptionrepo.NewMemoryRepository(),
		UserConfigs:   configs,
		Hasher:        hasher,
		AuditRepo:     auditrepo.NewMemoryRepository(),
	})
	return &fixture{app: app, users: users, servers: servers, configs: configs, store: store, admin: admin, member: member}
}

func (f *fixture) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, raw)
		}
	}
	return resp, decoded
}

func (f *fixture) accessToken(t *testing.T, u *userdomain.User) string {
	t.Helper()
	token, _, err := security.NewTestTokenProvider().IssueAccess(u.ID, string(u.Role))
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func TestHealthRoute(t *testing.T) {
	f := newFixture(t)
	resp, body := f.request(t, "GET", "/api/health", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestLoginRoute(t *testing.T) {
	f := newFixture(t)

	resp, body := f.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "admin@x.io", "password": "Secret123!",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}
	if body["accessToken"] == "" || body["refreshToken"] == "" {
		t.Error("missing tokens in response")
	}
	user, _ := body["user"].(map[string]interface{})
	if user["email"] != "admin@x.io" || user["role"] != "admin" {
		t.Errorf("user = %v", user)
	}

	// Wrong password and unknown user: same status, same body.
	respWrong, bodyWrong := f.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "admin@x.io", "password": "nope",
	})
	respUnknown, bodyUnknown := f.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "ghost@x.io", "password": "nope",
	})
	if respWrong.StatusCode != fiber.StatusUnauthorized || respUnknown.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("statuses = %d, %d, want 401", respWrong.StatusCode, respUnknown.StatusCode)
	}
	if bodyWrong["message"] != bodyUnknown["message"] {
		t.Errorf("failure bodies differ: %v vs %v", bodyWrong, bodyUnknown)
	}
}

func TestRefreshAndLogoutRoutes(t *testing.T) {
	f := newFixture(t)

	_, login := f.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "member@x.io", "password": "Secret123!",
	})
	refreshToken, _ := login["refreshToken"].(string)

	resp, body := f.request(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": refreshToken})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("refresh status = %d: %v", resp.StatusCode, body)
	}
	if body["accessToken"] == "" {
		t.Error("refresh returned no access token")
	}

	resp, body = f.request(t, "POST", "/api/auth/logout", "", map[string]string{"refreshToken": refreshToken})
	if resp.StatusCode != fiber.StatusOK || body["success"] != true {
		t.Errorf("logout = %d %v", resp.StatusCode, body)
	}

	// After logout the refresh token is dead, but logout stays 200.
	resp, _ = f.request(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": refreshToken})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("refresh after logout = %d, want 401", resp.StatusCode)
	}
	resp, body = f.request(t, "POST", "/api/auth/logout", "", map[string]string{"refreshToken": refreshToken})
	if resp.StatusCode != fiber.StatusOK || body["success"] != true {
		t.Errorf("repeat logout = %d %v", resp.StatusCode, body)
	}
}

func TestSessionsRouteRequiresAuth(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.request(t, "GET", "/api/auth/sessions", "", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated = %d, want 401", resp.StatusCode)
	}

	f.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "member@x.io", "password": "Secret123!",
	})
	resp, body := f.request(t, "GET", "/api/auth/sessions", f.accessToken(t, f.member), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}
	sessions, _ := body["sessions"].([]interface{})
	if len(sessions) != 1 {
		t.Fatalf("sessions = %v", body)
	}
	s, _ := sessions[0].(map[string]interface{})
	if s["isActive"] != true {
		t.Errorf("session = %v", s)
	}
}

func TestProvisionRoute(t *testing.T) {
	f := newFixture(t)
	adminToken := f.accessToken(t, f.admin)

	// No servers yet: 400.
	resp, _ := f.request(t, "POST", "/api/provision", adminToken, map[string]int64{"userId": f.member.ID})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("no server = %d, want 400", resp.StatusCode)
	}

	online, err := f.servers.Create(context.Background(), &servernodedomain.ServerNode{
		IP: "203.0.113.1", Region: "eu-west", Status: servernodedomain.StatusOnline,
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	offline, err := f.servers.Create(context.Background(), &servernodedomain.ServerNode{
		IP: "203.0.113.2", Region: "eu-west", Status: servernodedomain.StatusOffline,
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	// Unknown user: 404.
	resp, _ = f.request(t, "POST", "/api/provision", adminToken, map[string]int64{"userId": 9999})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", resp.StatusCode)
	}

	// Offline explicit server: 400.
	resp, _ = f.request(t, "POST", "/api/provision", adminToken, map[string]int64{
		"userId": f.member.ID, "serverId": offline.ID,
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("offline server = %d, want 400", resp.StatusCode)
	}

	// No explicit server: falls back to the first online one, 202.
	resp, body := f.request(t, "POST", "/api/provision", adminToken, map[string]int64{"userId": f.member.ID})
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("enqueue = %d: %v", resp.StatusCode, body)
	}
	if body["jobId"] == "" {
		t.Error("missing jobId")
	}
	if int64(body["serverId"].(float64)) != online.ID {
		t.Errorf("serverId = %v, want %d", body["serverId"], online.ID)
	}

	job, err := f.store.GetByID(context.Background(), body["jobId"].(string))
	if err != nil || job == nil {
		t.Fatalf("job not in store: %v %v", job, err)
	}
	if job.State != provisiondomain.StatePending {
		t.Errorf("job state = %s, want pending", job.State)
	}

	// Member and unauthenticated callers are rejected before any queue work.
	resp, _ = f.request(t, "POST", "/api/provision", f.accessToken(t, f.member), map[string]int64{"userId": f.member.ID})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("member = %d, want 403", resp.StatusCode)
	}
	resp, _ = f.request(t, "POST", "/api/provision", "", map[string]int64{"userId": f.member.ID})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", resp.StatusCode)
	}
}

func TestProvisionJobsRoute(t *testing.T) {
	f := newFixture(t)
	adminToken := f.accessToken(t, f.admin)

	if _, err := f.servers.Create(context.Background(), &servernodedomain.ServerNode{
		IP: "203.0.113.1", Region: "eu-west", Status: servernodedomain.StatusOnline,
	}); err != nil {
		t.Fatalf("create server: %v", err)
	}
	resp, _ := f.request(t, "POST", "/api/provision", adminToken, map[string]int64{"userId": f.member.ID})
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("enqueue = %d", resp.StatusCode)
	}

	resp, body := f.request(t, "GET", "/api/provision/jobs?state=pending", adminToken, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list = %d: %v", resp.StatusCode, body)
	}
	jobs, _ := body["jobs"].([]interface{})
	if len(jobs) != 1 {
		t.Fatalf("jobs = %v", body)
	}

	resp, _ = f.request(t, "GET", "/api/provision/jobs?state=bogus", adminToken, nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bogus state = %d, want 400", resp.StatusCode)
	}
}

func TestUserManagementRoutes(t *testing.T) {
	f := newFixture(t)
	adminToken := f.accessToken(t, f.admin)

	resp, body := f.request(t, "GET", "/api/users", adminToken, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list = %d: %v", resp.StatusCode, body)
	}
	users, _ := body["users"].([]interface{})
	if len(users) != 2 {
		t.Fatalf("users = %v", body)
	}

	memberPath := fmt.Sprintf("/api/users/%d", f.member.ID)

	// Promote the member; email untouched.
	resp, body = f.request(t, "PATCH", memberPath, adminToken, map[string]string{"role": "admin"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("patch = %d: %v", resp.StatusCode, body)
	}
	if body["role"] != "admin" || body["email"] != "member@x.io" {
		t.Errorf("patched user = %v", body)
	}

	resp, _ = f.request(t, "PATCH", memberPath, adminToken, map[string]string{"role": "superuser"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad role = %d, want 400", resp.StatusCode)
	}
	resp, _ = f.request(t, "PATCH", "/api/users/9999", adminToken, map[string]string{"role": "admin"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("missing user = %d, want 404", resp.StatusCode)
	}

	resp, body = f.request(t, "PUT", memberPath+"/subscription", adminToken, map[string]interface{}{
		"expiryDate": "2030-01-01T00:00:00Z", "quota": 1073741824,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("subscription = %d: %v", resp.StatusCode, body)
	}
	if int64(body["userId"].(float64)) != f.member.ID {
		t.Errorf("subscription userId = %v", body["userId"])
	}

	// Member token cannot manage users.
	resp, _ = f.request(t, "GET", "/api/users", f.accessToken(t, f.member), nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("member list = %d, want 403", resp.StatusCode)
	}
}

func TestCreateUserRoute(t *testing.T) {
	f := newFixture(t)
	adminToken := f.accessToken(t, f.admin)

	// No servers yet: user is still created, just without a provision job.
	resp, body := f.request(t, "POST", "/api/users", adminToken, map[string]interface{}{
		"email": "early@x.io", "password": "Password1",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create without server = %d: %v", resp.StatusCode, body)
	}
	if body["provisionJobId"] != nil {
		t.Errorf("provisionJobId = %v, want null", body["provisionJobId"])
	}

	online, err := f.servers.Create(context.Background(), &servernodedomain.ServerNode{
		IP: "203.0.113.1", Region: "eu-west", Status: servernodedomain.StatusOnline,
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	resp, body = f.request(t, "POST", "/api/users", adminToken, map[string]interface{}{
		"email": "NewUser@X.IO", "password": "Password1",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create = %d: %v", resp.StatusCode, body)
	}
	user, _ := body["user"].(map[string]interface{})
	if user["email"] != "newuser@x.io" || user["role"] != "member" {
		t.Errorf("user = %v", user)
	}
	sub, _ := body["subscription"].(map[string]interface{})
	if int64(sub["quota"].(float64)) != 50_000_000_000 {
		t.Errorf("quota = %v, want default", sub["quota"])
	}
	jobID, _ := body["provisionJobId"].(string)
	if jobID == "" {
		t.Fatalf("provisionJobId = %v", body["provisionJobId"])
	}

	job, err := f.store.GetByID(context.Background(), jobID)
	if err != nil || job == nil {
		t.Fatalf("job not in store: %v %v", job, err)
	}
	if job.TriggeredBy != provisiondomain.TriggerAutomatic {
		t.Errorf("triggeredBy = %s, want %s", job.TriggeredBy, provisiondomain.TriggerAutomatic)
	}
	if job.ServerID != online.ID || job.State != provisiondomain.StatePending {
		t.Errorf("job = %+v", job)
	}

	// Duplicate email: 409, no second user.
	resp, _ = f.request(t, "POST", "/api/users", adminToken, map[string]interface{}{
		"email": "newuser@x.io", "password": "Password1",
	})
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("duplicate = %d, want 409", resp.StatusCode)
	}

	resp, _ = f.request(t, "POST", "/api/users", adminToken, map[string]interface{}{
		"email": "short@x.io", "password": "short",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("short password = %d, want 400", resp.StatusCode)
	}
	resp, _ = f.request(t, "POST", "/api/users", adminToken, map[string]interface{}{
		"email": "not-an-email", "password": "Password1",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad email = %d, want 400", resp.StatusCode)
	}

	resp, _ = f.request(t, "POST", "/api/users", f.accessToken(t, f.member), map[string]interface{}{
		"email": "sneaky@x.io", "password": "Password1",
	})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("member create = %d, want 403", resp.StatusCode)
	}
}

func TestUserConfigDownloadRoute(t *testing.T) {
	f := newFixture(t)
	memberToken := f.accessToken(t, f.member)

	resp, body := f.request(t, "GET", "/api/users/me/config", memberToken, nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("no config yet = %d: %v", resp.StatusCode, body)
	}

	if _, err := f.configs.Save(context.Background(), f.member.ID, 1, "stale config"); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if _, err := f.configs.Save(context.Background(), f.member.ID, 1, "[Interface]\nAddress = 10.8.0.2/32\n"); err != nil {
		t.Fatalf("save config: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/users/me/config", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rawResp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if rawResp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", rawResp.StatusCode)
	}
	if ct := rawResp.Header.Get("Content-Type"); ct != fiber.MIMETextPlainCharsetUTF8 {
		t.Errorf("content type = %q", ct)
	}
	text, _ := io.ReadAll(rawResp.Body)
	if string(text) != "[Interface]\nAddress = 10.8.0.2/32\n" {
		t.Errorf("body = %q, want the latest config", text)
	}

	resp, _ = f.request(t, "GET", "/api/users/me/config", "", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", resp.StatusCode)
	}
}

func TestServerManagementRoutes(t *testing.T) {
	f := newFixture(t)
	adminToken := f.accessToken(t, f.admin)

	resp, body := f.request(t, "POST", "/api/servers", adminToken, map[string]interface{}{
		"ip": "203.0.113.9", "region": "us-east", "status": "online",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create = %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "online" {
		t.Errorf("created server = %v", body)
	}

	resp, _ = f.request(t, "POST", "/api/servers", adminToken, map[string]interface{}{
		"ip": "203.0.113.9", "region": "us-east", "status": "degraded",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", resp.StatusCode)
	}
	resp, _ = f.request(t, "POST", "/api/servers", adminToken, map[string]interface{}{"region": "us-east"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing ip = %d, want 400", resp.StatusCode)
	}

	resp, body = f.request(t, "GET", "/api/servers", adminToken, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list = %d: %v", resp.StatusCode, body)
	}
	servers, _ := body["servers"].([]interface{})
	if len(servers) != 1 {
		t.Errorf("servers = %v", body)
	}
}

func TestAuditRouteRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	resp, body := f.request(t, "GET", "/api/audit", f.accessToken(t, f.admin), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("admin = %d: %v", resp.StatusCode, body)
	}
	if _, ok := body["entries"]; !ok {
		t.Errorf("body = %v", body)
	}

	resp, _ = f.request(t, "GET", "/api/audit", f.accessToken(t, f.member), nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("member = %d, want 403", resp.StatusCode)
	}
	resp, _ = f.request(t, "GET", "/api/audit?limit=0", f.accessToken(t, f.admin), nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("limit=0 = %d, want 400", resp.StatusCode)
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
