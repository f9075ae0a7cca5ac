package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oms/mpsync/pkg/errorutil"
)

// Client 市场 API 契约
// 所有调用按店铺（campaign）作用域执行；HTTP 层故障以带类别的错误返回，
// 永不 panic
type Client interface {
	// ListOrders 按显式游标拉取一页订单
	ListOrders(ctx context.Context, campaignID string, filter ListFilter) (*OrderPage, error)

	// GetOrder 按单号查询订单，不存在返回 KindNotFound
	GetOrder(ctx context.Context, campaignID string, orderID int64) (*RawOrder, error)

	// PushStatus 推送内部状态到市场侧
	PushStatus(ctx context.Context, campaignID string, orderID int64, status, substatus string) error
}

// HTTPClient Client 的 HTTP 实现
type HTTPClient struct {
	baseURL string
	token   string
	httpCli *http.Client
}

// NewHTTPClient 创建市场 HTTP 客户端
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpCli: &http.Client{Timeout: timeout},
	}
}

// ListOrders 拉取一页订单
func (c *HTTPClient) ListOrders(ctx context.Context, campaignID string, filter ListFilter) (*OrderPage, error) {
	q := url.Values{}
	if len(filter.Statuses) > 0 {
		q.Set("status", strings.Join(filter.Statuses, ","))
	}
	if filter.UpdatedFrom != "" {
		q.Set("fromDate", filter.UpdatedFrom)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}

	path := fmt.Sprintf("/campaigns/%s/orders", url.PathEscape(campaignID))

	var page OrderPage
	if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}

	page.HasNext = page.Pager.CurrentPage < page.Pager.PagesCount

	return &page, nil
}

// GetOrder 按单号查询订单
func (c *HTTPClient) GetOrder(ctx context.Context, campaignID string, orderID int64) (*RawOrder, error) {
	path := fmt.Sprintf("/campaigns/%s/orders/%d", url.PathEscape(campaignID), orderID)

	var resp struct {
		Order *RawOrder `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Order == nil {
		return nil, errorutil.NotFound(fmt.Sprintf("order %d not found under campaign %s", orderID, campaignID))
	}

	return resp.Order, nil
}

// PushStatus 推送状态变更
func (c *HTTPClient) PushStatus(ctx context.Context, campaignID string, orderID int64, status, substatus string) error {
	path := fmt.Sprintf("/campaigns/%s/orders/%d/status", url.PathEscape(campaignID), orderID)

	body := map[string]interface{}{
		"order": map[string]string{
			"status":    status,
			"substatus": substatus,
		},
	}

	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}

// do 执行 HTTP 请求并归一化错误
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body failed: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Api-Key", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		// 网络层故障（超时、连接拒绝）一律按瞬时错误处理
		return errorutil.TransientNetworkWrap(fmt.Sprintf("marketplace %s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errorutil.NotFound(fmt.Sprintf("marketplace %s %s: not found", method, path))

	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errorutil.TransientNetwork(fmt.Sprintf("marketplace %s %s: status %d", method, path, resp.StatusCode))

	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e := errorutil.NonRetriable(fmt.Sprintf("marketplace %s %s: status %d", method, path, resp.StatusCode))
		e.DevDetails = string(payload)
		return e
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}

	return nil
}

var _ Client = (*HTTPClient)(nil)
