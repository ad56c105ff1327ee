package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apimon/internal/config"
	"apimon/internal/model"
)

// TestLogin_FormEncoded 登录必须用表单编码提交凭据
func TestLogin_FormEncoded(t *testing.T) {
	var gotContentType, gotUsername string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotUsername = r.PostFormValue("username")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	token, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token错误: %s", token)
	}
	if !strings.HasPrefix(gotContentType, "application/x-www-form-urlencoded") {
		t.Errorf("Content-Type应为表单编码, 实际: %s", gotContentType)
	}
	if gotUsername != "alice" {
		t.Errorf("用户名未透传: %s", gotUsername)
	}
}

// TestLogin_UpstreamError 上游错误消息原样透传
func TestLogin_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "alice", "wrong")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("应返回UpstreamError, 实际: %v", err)
	}
	if ue.Status != http.StatusUnauthorized {
		t.Errorf("状态码错误: %d", ue.Status)
	}
	if ue.Message != "Incorrect username or password" {
		t.Errorf("上游消息应原样透传, 实际: %s", ue.Message)
	}
}

// TestListAPIs_EnvelopeUnwrap 列表响应的data信封拆包
func TestListAPIs_EnvelopeUnwrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("bearer token未携带: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":1,"name":"orders","endpoint":"/v1/orders","method":"GET","enabled":true}],"message":"ok"}`))
	}))
	defer srv.Close()

	apis, err := New(srv.URL).ListAPIs(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(apis) != 1 || apis[0].Name != "orders" || !apis[0].Enabled {
		t.Errorf("拆包结果错误: %+v", apis)
	}
}

// TestGenerateKey 生成密钥走POST并返回明文密钥
func TestGenerateKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api-keys/" {
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"api_id":3`) {
			t.Errorf("请求体未携带api_id: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":9,"api_id":3,"tier_id":1,"key_value":"sk-new","enabled":true}}`))
	}))
	defer srv.Close()

	key, err := New(srv.URL).GenerateKey(context.Background(), "tok", &model.GenerateKeyRequest{APIID: 3, TierID: 1})
	if err != nil {
		t.Fatalf("生成密钥失败: %v", err)
	}
	if key.KeyValue != "sk-new" {
		t.Errorf("密钥明文缺失: %+v", key)
	}
}

// TestRevokeKey_PathAndMethod 吊销走PUT /api-keys/:id/revoke
func TestRevokeKey_PathAndMethod(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":null,"message":"revoked"}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).RevokeKey(context.Background(), "tok", 42); err != nil {
		t.Fatalf("吊销失败: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api-keys/42/revoke" {
		t.Errorf("路由错误: %s %s", gotMethod, gotPath)
	}
}

// TestStartStress_RawStream 压测打到上游 /stress/start 并返回未解析的原始流
func TestStartStress_RawStream(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte("{\"log\":\"line one\"}\n{\"status\":\"completed\"}\n"))
	}))
	defer srv.Close()

	body, err := New(srv.URL).StartStress(context.Background(), "tok", &model.StressRequest{
		TargetEndpoint: "/v1/orders", APIKey: "sk-1",
	})
	if err != nil {
		t.Fatalf("启动压测失败: %v", err)
	}
	defer body.Close()

	if gotPath != "/stress/start" {
		t.Errorf("压测端点路径错误: %s", gotPath)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("读流失败: %v", err)
	}
	if !strings.Contains(string(raw), "line one") {
		t.Errorf("流内容缺失: %s", raw)
	}
}

// TestStartStress_ErrorBody 流式端点的错误也要带上游消息
func TestStartStress_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"API key disabled"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).StartStress(context.Background(), "tok", &model.StressRequest{
		TargetEndpoint: "/v1/orders", APIKey: "sk-1",
	})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("应返回UpstreamError, 实际: %v", err)
	}
	if ue.Message != "API key disabled" {
		t.Errorf("错误消息错误: %s", ue.Message)
	}
}

// TestNew_TransportTuning 两个客户端都挂上调优过的transport
func TestNew_TransportTuning(t *testing.T) {
	c := New("http://localhost:8000")

	for name, rc := range map[string]*http.Client{
		"rest":   c.rest.GetClient(),
		"stream": c.stream.GetClient(),
	} {
		tr, ok := rc.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("%s客户端应使用自定义transport", name)
		}
		if tr.MaxIdleConnsPerHost != config.UpstreamMaxIdleConnsPerHost {
			t.Errorf("%s客户端空闲连接数错误: %d", name, tr.MaxIdleConnsPerHost)
		}
	}
	if c.rest.GetClient().Timeout != config.UpstreamRequestTimeout {
		t.Errorf("REST超时错误: %v", c.rest.GetClient().Timeout)
	}
	if c.stream.GetClient().Timeout != 0 {
		t.Errorf("流式客户端不应设整体超时: %v", c.stream.GetClient().Timeout)
	}
}

// TestNewUpstreamError_FallbackRaw 无结构化字段时退回原始body
func TestNewUpstreamError_FallbackRaw(t *testing.T) {
	e := newUpstreamError(502, []byte("Bad Gateway"))
	if e.Message != "Bad Gateway" {
		t.Errorf("应退回原始body: %s", e.Message)
	}
	if !strings.Contains(e.Error(), "502") {
		t.Errorf("Error()应包含状态码: %s", e.Error())
	}
}
