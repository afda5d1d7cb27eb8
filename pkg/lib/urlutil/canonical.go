// Package urlutil 提供 URL 规范化与比较
package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// 错误定义
var (
	// ErrNotHTTP 不是绝对的 http/https URL
	ErrNotHTTP = errors.New("url must be an absolute http or https url")

	// ErrNoHost URL 没有主机
	ErrNoHost = errors.New("url has no host")
)

// defaultPorts 各 scheme 的默认端口
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// Canonicalize 解析并返回 http/https URL 的规范形式
//
// 规则：
//  1. scheme 和 host 小写
//  2. 去掉默认端口
//  3. 去掉 fragment
//  4. 去掉路径尾部斜杠（根路径除外）
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if !u.IsAbs() || (scheme != "http" && scheme != "https") {
		return "", ErrNotHTTP
	}

	return canonical(u).String(), nil
}

// EqualURL 判断两个 URL 语义上是否相同
//
// 在规范形式上比较，另外忽略查询参数顺序。两个 nil 相等。
func EqualURL(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return canonical(a).String() == canonical(b).String()
}

// HostOf 返回 URL 的主机名（小写，不含端口）
//
// 没有 scheme 的输入按 http 处理，因此 "example.com:8080" 也能解析。
func HostOf(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", ErrNoHost
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", ErrNoHost
	}
	return host, nil
}

// canonical 返回规范化后的副本，不修改入参
func canonical(in *url.URL) *url.URL {
	u := *in
	if in.User != nil {
		user := *in.User
		u.User = &user
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		host := u.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		u.Host = host
	} else if port != "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	u.Fragment = ""
	u.RawFragment = ""

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "" && u.Host != "" && u.Opaque == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		if q, err := url.ParseQuery(u.RawQuery); err == nil {
			u.RawQuery = q.Encode()
		}
	}
	return &u
}
