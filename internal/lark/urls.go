package lark

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseRef locates a Bitable table from a browser URL.
type BaseRef struct {
	AppToken string
	TableID  string
	ViewID   string
}

// ParseBaseURL extracts the app token, table and view from a URL like
// https://xxx.feishu.cn/base/{app_token}?table={table_id}&view={view_id}.
func ParseBaseURL(raw string) (BaseRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return BaseRef{}, fmt.Errorf("parsing base URL: %w", err)
	}

	appToken, ok := segmentAfter(u.Path, "base")
	if !ok {
		return BaseRef{}, fmt.Errorf("invalid base URL %q: missing /base/{app_token}", raw)
	}

	ref := BaseRef{
		AppToken: appToken,
		TableID:  u.Query().Get("table"),
		ViewID:   u.Query().Get("view"),
	}
	if ref.TableID == "" {
		return BaseRef{}, fmt.Errorf("invalid base URL %q: missing table parameter", raw)
	}
	return ref, nil
}

// ParseWikiURL extracts the node token from a URL like
// https://xxx.feishu.cn/wiki/{node_token}?fromScene=spaceOverview.
func ParseWikiURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parsing wiki URL: %w", err)
	}

	token, ok := segmentAfter(u.Path, "wiki")
	if !ok {
		return "", fmt.Errorf("invalid wiki URL %q: missing /wiki/{node_token}", raw)
	}
	return token, nil
}

func segmentAfter(path, marker string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == marker && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}
