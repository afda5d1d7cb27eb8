package mapping

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// maxBodySize 响应体读取上限
const maxBodySize = 8 << 20

// Response 提供解析后的响应体
//
// ParsedBody 返回 map[string]interface{}（对象）或 []interface{}（数组）。
type Response interface {
	ParsedBody() (interface{}, error)
}

// HTTPResponse 把 *http.Response 适配为 Response
//
// 响应体只读取一次，结果被缓存；读取后关闭 Body。
type HTTPResponse struct {
	resp *http.Response

	once sync.Once
	body interface{}
	err  error
}

// NewHTTPResponse 包装 HTTP 响应
func NewHTTPResponse(resp *http.Response) *HTTPResponse {
	return &HTTPResponse{resp: resp}
}

// StatusCode 返回 HTTP 状态码
func (r *HTTPResponse) StatusCode() int {
	if r.resp == nil {
		return 0
	}
	return r.resp.StatusCode
}

// ParsedBody 解析 JSON 响应体
func (r *HTTPResponse) ParsedBody() (interface{}, error) {
	r.once.Do(func() {
		if r.resp == nil || r.resp.Body == nil {
			r.err = ErrNilResponse
			return
		}
		defer r.resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(r.resp.Body, maxBodySize))
		if err != nil {
			r.err = fmt.Errorf("read body: %w", err)
			return
		}
		if err := json.Unmarshal(data, &r.body); err != nil {
			r.err = fmt.Errorf("parse body: %w", err)
		}
	})
	return r.body, r.err
}

// BodyResponse 已解析的响应体，用于测试或非 HTTP 来源
type BodyResponse struct {
	Body interface{}
}

// ParsedBody 返回 Body
func (r BodyResponse) ParsedBody() (interface{}, error) {
	return r.Body, nil
}
