package gateway

import (
	"context"
	"fmt"

	"apimon/internal/model"

	"github.com/go-resty/resty/v2"
)

// getEnvelope 发GET并拆 {data} 信封
func getEnvelope[T any](ctx context.Context, c *Client, bearer, path string) (T, error) {
	var env envelope[T]
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetResult(&env).
		Get(path)
	if err := checkResp(resp, err); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// doEnvelope 发带body的写请求并拆 {data} 信封
func doEnvelope[T any](ctx context.Context, c *Client, bearer, method, path string, body any) (T, error) {
	var env envelope[T]
	req := c.rest.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetResult(&env)
	if body != nil {
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch method {
	case "POST":
		resp, err = req.Post(path)
	case "PUT":
		resp, err = req.Put(path)
	case "DELETE":
		resp, err = req.Delete(path)
	default:
		return env.Data, fmt.Errorf("unsupported method: %s", method)
	}
	if err := checkResp(resp, err); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// ==================== 上游API管理 ====================

func (c *Client) ListAPIs(ctx context.Context, bearer string) ([]model.UpstreamAPI, error) {
	return getEnvelope[[]model.UpstreamAPI](ctx, c, bearer, "/apis/")
}

func (c *Client) CreateAPI(ctx context.Context, bearer string, api *model.UpstreamAPI) (*model.UpstreamAPI, error) {
	return doEnvelope[*model.UpstreamAPI](ctx, c, bearer, "POST", "/apis/", api)
}

func (c *Client) UpdateAPI(ctx context.Context, bearer string, id int64, api *model.UpstreamAPI) (*model.UpstreamAPI, error) {
	return doEnvelope[*model.UpstreamAPI](ctx, c, bearer, "PUT", fmt.Sprintf("/apis/%d", id), api)
}

func (c *Client) DeleteAPI(ctx context.Context, bearer string, id int64) error {
	_, err := doEnvelope[any](ctx, c, bearer, "DELETE", fmt.Sprintf("/apis/%d", id), nil)
	return err
}

// ==================== 限流档位管理 ====================

func (c *Client) ListTiers(ctx context.Context, bearer string) ([]model.Tier, error) {
	return getEnvelope[[]model.Tier](ctx, c, bearer, "/tiers/")
}

func (c *Client) CreateTier(ctx context.Context, bearer string, tier *model.Tier) (*model.Tier, error) {
	return doEnvelope[*model.Tier](ctx, c, bearer, "POST", "/tiers/", tier)
}

func (c *Client) UpdateTier(ctx context.Context, bearer string, id int64, tier *model.Tier) (*model.Tier, error) {
	return doEnvelope[*model.Tier](ctx, c, bearer, "PUT", fmt.Sprintf("/tiers/%d", id), tier)
}

func (c *Client) DeleteTier(ctx context.Context, bearer string, id int64) error {
	_, err := doEnvelope[any](ctx, c, bearer, "DELETE", fmt.Sprintf("/tiers/%d", id), nil)
	return err
}

// ==================== API密钥管理 ====================

// ListMyKeys 当前用户自己的密钥
func (c *Client) ListMyKeys(ctx context.Context, bearer string) ([]model.APIKey, error) {
	return getEnvelope[[]model.APIKey](ctx, c, bearer, "/api-keys/")
}

// ListAllKeys 全部密钥（上游要求admin角色）
func (c *Client) ListAllKeys(ctx context.Context, bearer string) ([]model.APIKey, error) {
	return getEnvelope[[]model.APIKey](ctx, c, bearer, "/api-keys/all")
}

// GenerateKey 为指定API+档位生成新密钥，密钥明文只在此响应出现一次
func (c *Client) GenerateKey(ctx context.Context, bearer string, req *model.GenerateKeyRequest) (*model.APIKey, error) {
	return doEnvelope[*model.APIKey](ctx, c, bearer, "POST", "/api-keys/", req)
}

// RevokeKey 吊销密钥（置enabled=false，不删除记录）
func (c *Client) RevokeKey(ctx context.Context, bearer string, id int64) error {
	_, err := doEnvelope[any](ctx, c, bearer, "PUT", fmt.Sprintf("/api-keys/%d/revoke", id), nil)
	return err
}

func (c *Client) DeleteKey(ctx context.Context, bearer string, id int64) error {
	_, err := doEnvelope[any](ctx, c, bearer, "DELETE", fmt.Sprintf("/api-keys/%d", id), nil)
	return err
}
