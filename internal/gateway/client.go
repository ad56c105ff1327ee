// Package gateway 封装对上游API网关后端的类型化REST访问。
//
// 上游是唯一数据源：认证、限流、聚合、压测负载生成全部在上游完成，
// 本客户端只做参数透传和 {data, message} 信封拆包，不做重试和批处理。
// 每个调用相互独立，失败只影响触发它的那次用户操作。
package gateway

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"apimon/internal/config"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// Client 上游网关客户端
// rest用于普通REST调用（带超时）；stream用于压测NDJSON流（不设超时，
// 流的寿命由上游结束或completed事件决定）
type Client struct {
	baseURL string
	rest    *resty.Client
	stream  *resty.Client
}

// New 创建上游网关客户端
func New(baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	// 两个客户端共用一个连接池：只打一个上游host，空闲连接充分复用
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: config.UpstreamDialTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: config.UpstreamMaxIdleConnsPerHost,
	}

	rest := resty.New().
		SetBaseURL(base).
		SetTransport(transport).
		SetTimeout(config.UpstreamRequestTimeout).
		SetHeader("Accept", "application/json")
	rest.JSONMarshal = sonic.Marshal
	rest.JSONUnmarshal = sonic.Unmarshal

	// 流式客户端：不设整体超时，连接建立超时由transport的Dialer负责
	stream := resty.New().
		SetBaseURL(base).
		SetTransport(transport).
		SetDoNotParseResponse(true)
	stream.JSONMarshal = sonic.Marshal
	stream.JSONUnmarshal = sonic.Unmarshal

	return &Client{baseURL: base, rest: rest, stream: stream}
}

// BaseURL 上游网关地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope 上游列表/对象响应的统一信封
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// UpstreamError 上游返回的非2xx响应
// 上游的错误消息原样透传给调用方（规范：不自动重试，错误局部化）
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Message)
}

// newUpstreamError 从错误响应体提取人类可读消息
// 依次尝试 detail / message / error 字段，都没有则截断原始body
func newUpstreamError(status int, body []byte) *UpstreamError {
	e := &UpstreamError{Status: status}

	var payload map[string]any
	if err := sonic.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				e.Message = msg
				return e
			}
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > 200 {
		raw = raw[:200]
	}
	e.Message = raw
	return e
}

// checkResp 把resty响应规整为error
func checkResp(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	if resp.IsError() {
		return newUpstreamError(resp.StatusCode(), resp.Body())
	}
	return nil
}
