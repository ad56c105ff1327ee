// Package testutil 测试辅助：可编排的假上游网关。
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"apimon/internal/model"

	"github.com/bytedance/sonic"
)

// FakeUser 假上游里的一个账号
type FakeUser struct {
	Password string
	Email    string
	Role     string
}

// FakeUpstream 模拟上游网关的HTTP服务
// 行为可按测试需要编排：预置账号/资源/分析数据，设定压测流脚本
type FakeUpstream struct {
	Server *httptest.Server

	mu      sync.Mutex
	users   map[string]FakeUser
	tokens  map[string]string // bearer → username
	nextID  int64
	apis    []model.UpstreamAPI
	tiers   []model.Tier
	keys    []model.APIKey
	records []model.AnalyticsRecord

	// StressScript 压测流逐块写出的NDJSON内容
	StressScript []string

	// 调用计数（断言用）
	AggregateCalls int
	LoginCalls     int
}

// NewFakeUpstream 启动假上游（记得defer Close）
func NewFakeUpstream() *FakeUpstream {
	f := &FakeUpstream{
		users:  make(map[string]FakeUser),
		tokens: make(map[string]string),
		nextID: 1,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.route))
	return f
}

func (f *FakeUpstream) Close() {
	f.Server.Close()
}

// URL 假上游基地址
func (f *FakeUpstream) URL() string {
	return f.Server.URL
}

// AddUser 预置账号
func (f *FakeUpstream) AddUser(username string, u FakeUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = u
}

// SeedAPI 预置一个已注册的API
func (f *FakeUpstream) SeedAPI(api model.UpstreamAPI) model.UpstreamAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	api.ID = f.nextID
	f.nextID++
	f.apis = append(f.apis, api)
	return api
}

// SeedRecords 预置分析聚合记录
func (f *FakeUpstream) SeedRecords(records []model.AnalyticsRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

// ==================== 路由 ====================

func (f *FakeUpstream) route(w http.ResponseWriter, r *http.Request) {
	path, method := r.URL.Path, r.Method

	switch {
	case path == "/auth/login" && method == http.MethodPost:
		f.handleLogin(w, r)
	case path == "/auth/register" && method == http.MethodPost:
		f.handleRegister(w, r)
	case path == "/auth/me" && method == http.MethodGet:
		f.handleMe(w, r)
	case path == "/apis/" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.snapshotAPIs()) })
	case path == "/apis/" && method == http.MethodPost:
		f.handleCreateAPI(w, r)
	case strings.HasPrefix(path, "/apis/") && method == http.MethodDelete:
		f.withAuth(w, r, func(_ string) { f.writeData(w, nil) })
	case path == "/tiers/" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.tiers) })
	case path == "/api-keys/" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.keys) })
	case path == "/api-keys/" && method == http.MethodPost:
		f.handleGenerateKey(w, r)
	case path == "/api-keys/all" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.keys) })
	case strings.HasSuffix(path, "/revoke") && method == http.MethodPut:
		f.withAuth(w, r, func(_ string) { f.writeData(w, nil) })
	case path == "/analytics/me" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.records) })
	case path == "/analytics/admin" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, f.records) })
	case path == "/analytics/usage" && method == http.MethodGet:
		f.withAuth(w, r, func(_ string) { f.writeData(w, &model.UsageSummary{}) })
	case path == "/admin/analytics/aggregate" && method == http.MethodPost:
		f.withAuth(w, r, func(_ string) {
			f.mu.Lock()
			f.AggregateCalls++
			f.mu.Unlock()
			f.writeData(w, nil)
		})
	case path == "/stress/start" && method == http.MethodPost:
		f.handleStress(w, r)
	default:
		f.writeError(w, http.StatusNotFound, "Not Found")
	}
}

// ==================== 认证 ====================

func (f *FakeUpstream) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.LoginCalls++
	f.mu.Unlock()

	r.ParseForm()
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	f.mu.Lock()
	user, ok := f.users[username]
	f.mu.Unlock()
	if !ok || user.Password != password {
		f.writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	bearer := "upstream-bearer-" + username
	f.mu.Lock()
	f.tokens[bearer] = username
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer"}`, bearer)
}

func (f *FakeUpstream) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		f.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[req.Username]; exists {
		f.writeError(w, http.StatusConflict, "Username already registered")
		return
	}
	f.users[req.Username] = FakeUser{Password: req.Password, Email: req.Email, Role: model.RoleUser}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{"data":null,"message":"registered"}`))
}

func (f *FakeUpstream) handleMe(w http.ResponseWriter, r *http.Request) {
	f.withAuth(w, r, func(username string) {
		f.mu.Lock()
		user := f.users[username]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":1,"username":%q,"email":%q,"role":%q}`, username, user.Email, user.Role)
	})
}

// withAuth 校验bearer后把用户名交给handler
func (f *FakeUpstream) withAuth(w http.ResponseWriter, r *http.Request, fn func(username string)) {
	auth := r.Header.Get("Authorization")
	bearer := strings.TrimPrefix(auth, "Bearer ")

	f.mu.Lock()
	username, ok := f.tokens[bearer]
	f.mu.Unlock()
	if !ok {
		f.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	fn(username)
}

// ==================== 资源 ====================

func (f *FakeUpstream) snapshotAPIs() []model.UpstreamAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UpstreamAPI, len(f.apis))
	copy(out, f.apis)
	return out
}

func (f *FakeUpstream) handleCreateAPI(w http.ResponseWriter, r *http.Request) {
	f.withAuth(w, r, func(_ string) {
		var api model.UpstreamAPI
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&api); err != nil {
			f.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		f.mu.Lock()
		api.ID = f.nextID
		f.nextID++
		f.apis = append(f.apis, api)
		f.mu.Unlock()
		f.writeData(w, &api)
	})
}

func (f *FakeUpstream) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	f.withAuth(w, r, func(_ string) {
		var req model.GenerateKeyRequest
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			f.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		f.mu.Lock()
		key := model.APIKey{ID: f.nextID, APIID: req.APIID, TierID: req.TierID, KeyValue: fmt.Sprintf("sk-fake-%d", f.nextID), Enabled: true}
		f.nextID++
		f.keys = append(f.keys, key)
		f.mu.Unlock()
		f.writeData(w, &key)
	})
}

// ==================== 压测流 ====================

func (f *FakeUpstream) handleStress(w http.ResponseWriter, r *http.Request) {
	f.withAuth(w, r, func(_ string) {
		flusher, _ := w.(http.Flusher)
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)

		for _, chunk := range f.StressScript {
			w.Write([]byte(chunk))
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}

// ==================== 响应 ====================

func (f *FakeUpstream) writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	raw, _ := sonic.Marshal(map[string]any{"data": data, "message": "ok"})
	w.Write(raw)
}

func (f *FakeUpstream) writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"detail":%q}`, detail)
}
