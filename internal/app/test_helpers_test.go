package app

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"apimon/internal/config"
	"apimon/internal/gateway"
	"apimon/internal/model"
	"apimon/internal/storage"
	"apimon/internal/storage/redis"
	"apimon/internal/testutil"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// testEnv 一套完整的测试环境：假上游 + 内存存储 + 控制台服务
type testEnv struct {
	upstream *testutil.FakeUpstream
	server   *Server
	router   *gin.Engine
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := testutil.NewFakeUpstream()
	up.AddUser("alice", testutil.FakeUser{Password: "secret", Email: "alice@example.com", Role: model.RoleAdmin})
	up.AddUser("bob", testutil.FakeUser{Password: "hunter2", Email: "bob@example.com", Role: model.RoleUser})

	store, err := storage.NewMemoryStore()
	if err != nil {
		t.Fatalf("创建内存存储失败: %v", err)
	}

	cache, _ := redis.New("", config.AnalyticsCacheTTL)

	cfg := &config.EnvConfig{
		Port:              ":0",
		UpstreamURL:       up.URL(),
		StressLogCapacity: 1000,
		FinishedRetention: 4,
	}

	srv := NewServer(cfg, store, gateway.New(up.URL()), cache)
	router := gin.New()
	srv.SetupRoutes(router)
	ts := httptest.NewServer(router)

	t.Cleanup(func() {
		ts.Close()
		up.Close()
		store.Close()
	})

	return &testEnv{upstream: up, server: srv, router: router, http: ts}
}

// doJSON 发送JSON请求并解析成APIResponse信封
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求体失败: %v", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.http.URL+path, buf)
	if err != nil {
		t.Fatalf("构造请求失败: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var envelope map[string]any
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("解析响应失败: %v (body=%s)", err, raw)
		}
	}
	return resp, envelope
}

// newPlainUser 只带密码的普通角色账号
func newPlainUser(password string) testutil.FakeUser {
	return testutil.FakeUser{Password: password, Role: model.RoleUser}
}

// login 登录并返回控制台token
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, envelope := e.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("登录失败: status=%d, body=%v", resp.StatusCode, envelope)
	}
	data := envelope["data"].(map[string]any)
	return data["token"].(string)
}
