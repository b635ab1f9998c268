package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"defi-snapshot-xrd/internal/consts"
)

const (
	pathEntityDetails      = "/state/entity/details"
	pathEntityFungibles    = "/state/entity/page/fungibles"
	pathEntityNonFungibles = "/state/entity/page/non-fungibles"
	pathNonFungibleData    = "/state/non-fungible/data"
	pathKvsKeys            = "/state/key-value-store/keys"
	pathKvsData            = "/state/key-value-store/data"
	pathStreamTransactions = "/stream/transactions"
)

// Client 是账本网关的 HTTP 客户端，带分块并发与游标跟随能力。
// 所有状态查询都显式携带 state_version，客户端本身无状态、并发安全。
type Client struct {
	endpoint         string
	httpClient       *http.Client
	chunkConcurrency int
}

type Option func(*Client)

// WithChunkConcurrency 覆盖同时在途的分块请求数上限
func WithChunkConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkConcurrency = n
		}
	}
}

// WithHTTPClient 注入自定义 http.Client（测试/代理场景）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:         strings.TrimRight(endpoint, "/"),
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		chunkConcurrency: consts.DefaultChunkConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post 发送一次 JSON 请求。404 转为 EntityNotFoundError，
// 其余非 2xx 转为 StatusError；传输错误原样包装上抛，引擎内不做重试。
func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return errors.Wrapf(err, "marshal request for %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "gateway request %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return errors.Wrapf(err, "read response of %s", path)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &EntityNotFoundError{Address: requestAddress(reqBody), Path: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: truncateBody(body)}
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return errors.Wrapf(err, "decode response of %s", path)
	}
	return nil
}

// requestAddress 尽力从请求体里取出地址，用于 404 错误的定位信息
func requestAddress(reqBody interface{}) string {
	switch r := reqBody.(type) {
	case *entityDetailsRequest:
		return strings.Join(r.Addresses, ",")
	case *entityPageRequest:
		return r.Address
	case *kvsKeysRequest:
		return r.KeyValueStoreAddress
	case *kvsDataRequest:
		return r.KeyValueStoreAddress
	case *nonFungibleDataRequest:
		return r.ResourceAddress
	default:
		return ""
	}
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
