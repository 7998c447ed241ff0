package tools

import (
	"context"

	"github.com/florianilch/larkbridge/internal/lark"
)

// Tool names.
const (
	TableRecordsList       = "table_records_list"
	CreateTableRecordsJSON = "create_table_records_json"
	TableFieldsInfo        = "table_fields_info"
	ChatGroupList          = "chat_group_list"
	SendTextMessage        = "send_text_message"
	SendMarkdownMessage    = "send_markdown_message"
	WikiNode               = "wiki_node"
	WikiContent            = "wiki_content"
)

// tableRef accepts either explicit tokens or a browser URL like
// https://xxx.feishu.cn/base/{app_token}?table={table_id}&view={view_id}.
type tableRef struct {
	URL      string `json:"url" validate:"omitempty,url"`
	AppToken string `json:"app_token" validate:"required_without=URL"`
	TableID  string `json:"table_id" validate:"required_without=URL"`
}

func (t tableRef) resolve(tool string) (lark.BaseRef, error) {
	if t.AppToken != "" && t.TableID != "" {
		return lark.BaseRef{AppToken: t.AppToken, TableID: t.TableID}, nil
	}
	ref, err := lark.ParseBaseURL(t.URL)
	if err != nil {
		return lark.BaseRef{}, &ArgumentError{Tool: tool, Err: err}
	}
	return ref, nil
}

type tableRecordsListArgs struct {
	tableRef
	ViewID     string       `json:"view_id"`
	FieldNames []string     `json:"field_names"`
	Filter     *lark.Filter `json:"filter"`
	Sort       []lark.Sort  `json:"sort" validate:"dive"`
	PageSize   int          `json:"page_size" validate:"omitempty,min=1,max=500"`
	PageToken  string       `json:"page_token"`
}

type createTableRecordsJSONArgs struct {
	tableRef
	RecordsJSON string `json:"records_json" validate:"required"`
}

type tableFieldsInfoArgs struct {
	tableRef
}

type chatGroupListArgs struct {
	PageSize  int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	PageToken string `json:"page_token"`
}

// ChatInfo is the projection returned by chat_group_list.
type ChatInfo struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
}

type sendTextArgs struct {
	ChatID string `json:"chat_id" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

type sendMarkdownArgs struct {
	ChatID   string `json:"chat_id" validate:"required"`
	Title    string `json:"title"`
	Markdown string `json:"markdown" validate:"required"`
}

// wikiRef accepts a node token or a URL like https://xxx.feishu.cn/wiki/{node_token}.
type wikiRef struct {
	URL       string `json:"url" validate:"omitempty,url"`
	NodeToken string `json:"node_token" validate:"required_without=URL"`
}

func (w wikiRef) resolve(tool string) (string, error) {
	if w.NodeToken != "" {
		return w.NodeToken, nil
	}
	token, err := lark.ParseWikiURL(w.URL)
	if err != nil {
		return "", &ArgumentError{Tool: tool, Err: err}
	}
	return token, nil
}

func builtin() []Tool {
	return []Tool{
		define(TableRecordsList,
			"Search records of a Bitable table. Returns one page; pass page_token to continue.",
			func(ctx context.Context, c *lark.Client, args tableRecordsListArgs) (any, error) {
				ref, err := args.resolve(TableRecordsList)
				if err != nil {
					return nil, err
				}
				viewID := args.ViewID
				if viewID == "" {
					viewID = ref.ViewID
				}
				return c.SearchRecords(ctx, ref.AppToken, ref.TableID, lark.SearchRecordsRequest{
					ViewID:     viewID,
					FieldNames: args.FieldNames,
					Filter:     args.Filter,
					Sort:       args.Sort,
					PageSize:   args.PageSize,
					PageToken:  args.PageToken,
				})
			}),

		define(CreateTableRecordsJSON,
			"Batch create records from a JSON array of field maps. Date fields take millisecond timestamps.",
			func(ctx context.Context, c *lark.Client, args createTableRecordsJSONArgs) (any, error) {
				ref, err := args.resolve(CreateTableRecordsJSON)
				if err != nil {
					return nil, err
				}
				records, err := lark.ParseRecordsJSON(args.RecordsJSON)
				if err != nil {
					return nil, &ArgumentError{Tool: CreateTableRecordsJSON, Err: err}
				}
				created, err := c.BatchCreateRecords(ctx, ref.AppToken, ref.TableID, records)
				if err != nil {
					return nil, err
				}
				return map[string]any{"records": created}, nil
			}),

		define(TableFieldsInfo,
			"Describe the fields of a Bitable table: name, description, primary flag, UI type and the JSON shape to write.",
			func(ctx context.Context, c *lark.Client, args tableFieldsInfoArgs) (any, error) {
				ref, err := args.resolve(TableFieldsInfo)
				if err != nil {
					return nil, err
				}
				infos, err := c.FieldInfos(ctx, ref.AppToken, ref.TableID)
				if err != nil {
					return nil, err
				}
				if infos == nil {
					infos = []lark.FieldInfo{}
				}
				return infos, nil
			}),

		define(ChatGroupList,
			"List the group chats the bot belongs to, oldest first.",
			func(ctx context.Context, c *lark.Client, args chatGroupListArgs) (any, error) {
				page, err := c.ListChats(ctx, args.PageSize, args.PageToken)
				if err != nil {
					return nil, err
				}
				chats := make([]ChatInfo, 0, len(page.Items))
				for _, chat := range page.Items {
					chats = append(chats, ChatInfo{ChatID: chat.ChatID, Name: chat.Name})
				}
				return chats, nil
			}),

		define(SendTextMessage,
			"Send a plain text message to a group chat.",
			func(ctx context.Context, c *lark.Client, args sendTextArgs) (any, error) {
				return c.SendText(ctx, args.ChatID, args.Text)
			}),

		define(SendMarkdownMessage,
			"Send a markdown message with an optional title to a group chat.",
			func(ctx context.Context, c *lark.Client, args sendMarkdownArgs) (any, error) {
				return c.SendMarkdown(ctx, args.ChatID, args.Title, args.Markdown)
			}),

		define(WikiNode,
			"Resolve a wiki node token or URL to its node metadata.",
			func(ctx context.Context, c *lark.Client, args wikiRef) (any, error) {
				token, err := args.resolve(WikiNode)
				if err != nil {
					return nil, err
				}
				return c.GetWikiNode(ctx, token)
			}),

		define(WikiContent,
			"Return the plain text of the docx document behind a wiki node.",
			func(ctx context.Context, c *lark.Client, args wikiRef) (any, error) {
				token, err := args.resolve(WikiContent)
				if err != nil {
					return nil, err
				}
				content, err := c.GetWikiContent(ctx, token)
				if err != nil {
					return nil, err
				}
				return map[string]string{"node_token": token, "content": content}, nil
			}),
	}
}
