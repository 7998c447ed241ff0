package lark

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// WikiNode is a node in a wiki space tree.
type WikiNode struct {
	SpaceID         string `json:"space_id"`
	NodeToken       string `json:"node_token"`
	ObjToken        string `json:"obj_token"`
	ObjType         string `json:"obj_type"`
	ParentNodeToken string `json:"parent_node_token,omitempty"`
	NodeType        string `json:"node_type,omitempty"`
	OriginNodeToken string `json:"origin_node_token,omitempty"`
	OriginSpaceID   string `json:"origin_space_id,omitempty"`
	HasChild        bool   `json:"has_child"`
	Title           string `json:"title"`
	ObjCreateTime   string `json:"obj_create_time,omitempty"`
	ObjEditTime     string `json:"obj_edit_time,omitempty"`
	NodeCreateTime  string `json:"node_create_time,omitempty"`
	Creator         string `json:"creator,omitempty"`
	Owner           string `json:"owner,omitempty"`
}

// WikiNodesResponse is one page of child nodes.
type WikiNodesResponse struct {
	Items     []WikiNode `json:"items"`
	PageToken string     `json:"page_token,omitempty"`
	HasMore   bool       `json:"has_more"`
}

// GetWikiNode resolves a wiki node token to its node, including the token
// and type of the document it wraps.
func (c *Client) GetWikiNode(ctx context.Context, nodeToken string) (WikiNode, error) {
	if nodeToken == "" {
		return WikiNode{}, fmt.Errorf("lark: get wiki node: token cannot be empty")
	}

	type getNodeResponse struct {
		Node WikiNode `json:"node"`
	}
	resp, err := call[getNodeResponse](ctx, c, "get_wiki_node", http.MethodGet,
		"/open-apis/wiki/v2/spaces/get_node", url.Values{"token": {nodeToken}}, nil)
	if err != nil {
		return WikiNode{}, err
	}
	return resp.Node, nil
}

// ListWikiNodes returns one page of the children of parentNodeToken in
// spaceID. An empty parent lists the space's top level.
func (c *Client) ListWikiNodes(ctx context.Context, spaceID, parentNodeToken, pageToken string) (WikiNodesResponse, error) {
	path, err := buildPath("/open-apis/wiki/v2/spaces/%s/nodes", [2]string{"space_id", spaceID})
	if err != nil {
		return WikiNodesResponse{}, fmt.Errorf("lark: list wiki nodes: %w", err)
	}

	query := url.Values{}
	if parentNodeToken != "" {
		query.Set("parent_node_token", parentNodeToken)
	}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	return call[WikiNodesResponse](ctx, c, "list_wiki_nodes", http.MethodGet, path, query, nil)
}

// GetDocumentRawContent returns the plain text of a docx document.
func (c *Client) GetDocumentRawContent(ctx context.Context, documentID string) (string, error) {
	path, err := buildPath("/open-apis/docx/v1/documents/%s/raw_content", [2]string{"document_id", documentID})
	if err != nil {
		return "", fmt.Errorf("lark: get document content: %w", err)
	}

	type rawContentResponse struct {
		Content string `json:"content"`
	}
	resp, err := call[rawContentResponse](ctx, c, "get_document_content", http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GetWikiContent resolves a wiki node and returns the plain text of the
// document behind it. Only docx nodes carry raw content.
func (c *Client) GetWikiContent(ctx context.Context, nodeToken string) (string, error) {
	node, err := c.GetWikiNode(ctx, nodeToken)
	if err != nil {
		return "", err
	}
	if node.ObjType != "docx" {
		return "", fmt.Errorf("lark: get wiki content: node %s wraps a %q object, only docx is supported", nodeToken, node.ObjType)
	}
	return c.GetDocumentRawContent(ctx, node.ObjToken)
}
