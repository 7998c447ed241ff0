package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const defaultChatsPageSize = 20

// Message types accepted by SendMessage.
const (
	MsgTypeText = "text"
	MsgTypePost = "post"
)

// Chat is a group the app's bot belongs to.
type Chat struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	OwnerIDType string `json:"owner_id_type,omitempty"`
	External    bool   `json:"external"`
	TenantKey   string `json:"tenant_key,omitempty"`
	ChatStatus  string `json:"chat_status,omitempty"`
}

// ChatsListResponse is one page of chats.
type ChatsListResponse struct {
	Items     []Chat `json:"items"`
	PageToken string `json:"page_token,omitempty"`
	HasMore   bool   `json:"has_more"`
}

// ListChats returns one page of the chats the bot is a member of, oldest
// first. A pageSize of zero uses the default.
func (c *Client) ListChats(ctx context.Context, pageSize int, pageToken string) (ChatsListResponse, error) {
	if pageSize <= 0 {
		pageSize = defaultChatsPageSize
	}
	query := url.Values{
		"page_size": {strconv.Itoa(pageSize)},
		"sort_type": {"ByCreateTimeAsc"},
	}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	return call[ChatsListResponse](ctx, c, "list_chats", http.MethodGet, "/open-apis/im/v1/chats", query, nil)
}

// MessageBody is the content of an outgoing message. Content holds the
// JSON-encoded payload for MsgType.
type MessageBody struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
	UUID      string `json:"uuid,omitempty"`
}

// Message is a sent message as returned by the API.
type Message struct {
	MessageID  string `json:"message_id"`
	RootID     string `json:"root_id,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	MsgType    string `json:"msg_type"`
	CreateTime string `json:"create_time,omitempty"`
	ChatID     string `json:"chat_id"`
}

// SendMessage posts msg to a chat. An empty UUID is filled in so a resend
// of the same body within an hour is deduplicated server side.
func (c *Client) SendMessage(ctx context.Context, msg MessageBody) (Message, error) {
	if msg.ReceiveID == "" {
		return Message{}, errors.New("lark: send message: receive_id cannot be empty")
	}
	if msg.MsgType == "" || msg.Content == "" {
		return Message{}, errors.New("lark: send message: msg_type and content are required")
	}
	if msg.UUID == "" {
		msg.UUID = c.newUUID()
	}

	query := url.Values{"receive_id_type": {"chat_id"}}
	return call[Message](ctx, c, "send_message", http.MethodPost, "/open-apis/im/v1/messages", query, msg)
}

// SendText sends a plain text message to chatID.
func (c *Client) SendText(ctx context.Context, chatID, text string) (Message, error) {
	body, err := TextMessage(chatID, text)
	if err != nil {
		return Message{}, fmt.Errorf("lark: send text: %w", err)
	}
	return c.SendMessage(ctx, body)
}

// SendMarkdown sends a rich text post with an optional title whose body is
// rendered as markdown.
func (c *Client) SendMarkdown(ctx context.Context, chatID, title, markdown string) (Message, error) {
	body, err := MarkdownMessage(chatID, title, markdown)
	if err != nil {
		return Message{}, fmt.Errorf("lark: send markdown: %w", err)
	}
	return c.SendMessage(ctx, body)
}

// TextMessage builds a text message body.
func TextMessage(chatID, text string) (MessageBody, error) {
	if text == "" {
		return MessageBody{}, errors.New("text cannot be empty")
	}
	content, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return MessageBody{}, err
	}
	return MessageBody{ReceiveID: chatID, MsgType: MsgTypeText, Content: string(content)}, nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postContent struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// MarkdownMessage builds a post message body carrying a single md element.
func MarkdownMessage(chatID, title, markdown string) (MessageBody, error) {
	if markdown == "" {
		return MessageBody{}, errors.New("markdown cannot be empty")
	}
	content, err := json.Marshal(map[string]postContent{
		"zh_cn": {
			Title:   title,
			Content: [][]postElement{{{Tag: "md", Text: markdown}}},
		},
	})
	if err != nil {
		return MessageBody{}, err
	}
	return MessageBody{ReceiveID: chatID, MsgType: MsgTypePost, Content: string(content)}, nil
}
