package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
)

const fieldsPageSize = 100

// SearchRecords returns one page of records matching req.
func (c *Client) SearchRecords(ctx context.Context, appToken, tableID string, req SearchRecordsRequest) (SearchRecordsResponse, error) {
	path, err := buildPath("/open-apis/bitable/v1/apps/%s/tables/%s/records/search",
		[2]string{"app_token", appToken}, [2]string{"table_id", tableID})
	if err != nil {
		return SearchRecordsResponse{}, fmt.Errorf("lark: search records: %w", err)
	}

	query := url.Values{}
	if req.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		query.Set("page_token", req.PageToken)
	}

	return call[SearchRecordsResponse](ctx, c, "search_records", http.MethodPost, path, query, req)
}

// Records iterates over every record matching req, following page tokens.
// Iteration stops at the first error, which is yielded with a zero Record.
func (c *Client) Records(ctx context.Context, appToken, tableID string, req SearchRecordsRequest) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			page, err := c.SearchRecords(ctx, appToken, tableID, req)
			if err != nil {
				yield(Record{}, err)
				return
			}
			for _, record := range page.Items {
				if !yield(record, nil) {
					return
				}
			}
			if !page.HasMore || page.PageToken == "" {
				return
			}
			req.PageToken = page.PageToken
		}
	}
}

// BatchCreateRecords creates records in one call and returns them with their ids.
func (c *Client) BatchCreateRecords(ctx context.Context, appToken, tableID string, records []RecordCreate) ([]Record, error) {
	path, err := buildPath("/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_create",
		[2]string{"app_token", appToken}, [2]string{"table_id", tableID})
	if err != nil {
		return nil, fmt.Errorf("lark: batch create records: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("lark: batch create records: no records provided")
	}

	type batchCreateRequest struct {
		Records []RecordCreate `json:"records"`
	}
	type batchCreateResponse struct {
		Records []Record `json:"records"`
	}

	resp, err := call[batchCreateResponse](ctx, c, "batch_create_records", http.MethodPost, path, nil,
		batchCreateRequest{Records: records})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// BatchCreateRecordsJSON creates records from a JSON array of field maps, e.g.
//
//	[{"Name": "Alice", "Date": 1742956800000, "Tags": ["a"]}]
//
// Array elements that are not objects are skipped. Numbers keep their exact
// textual form so millisecond timestamps survive unchanged.
func (c *Client) BatchCreateRecordsJSON(ctx context.Context, appToken, tableID, recordsJSON string) ([]Record, error) {
	if appToken == "" || tableID == "" {
		return nil, errors.New("lark: batch create records: app_token and table_id cannot be empty")
	}

	records, err := ParseRecordsJSON(recordsJSON)
	if err != nil {
		return nil, fmt.Errorf("lark: batch create records: %w", err)
	}

	return c.BatchCreateRecords(ctx, appToken, tableID, records)
}

// ParseRecordsJSON converts a JSON array of objects into records to create.
func ParseRecordsJSON(recordsJSON string) ([]RecordCreate, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(recordsJSON)))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parsing records JSON: %w", err)
	}

	records := make([]RecordCreate, 0, len(items))
	for _, item := range items {
		if fields, ok := item.(map[string]any); ok {
			records = append(records, RecordCreate{Fields: fields})
		}
	}
	if len(records) == 0 {
		return nil, errors.New("no valid records found in the provided JSON")
	}

	return records, nil
}

// ListFields returns one page of field definitions.
func (c *Client) ListFields(ctx context.Context, appToken, tableID, pageToken string) (FieldsListResponse, error) {
	path, err := buildPath("/open-apis/bitable/v1/apps/%s/tables/%s/fields",
		[2]string{"app_token", appToken}, [2]string{"table_id", tableID})
	if err != nil {
		return FieldsListResponse{}, fmt.Errorf("lark: list fields: %w", err)
	}

	query := url.Values{"page_size": {strconv.Itoa(fieldsPageSize)}}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	return call[FieldsListResponse](ctx, c, "list_fields", http.MethodGet, path, query, nil)
}

// FieldInfos returns the simplified projection of every field in the table.
func (c *Client) FieldInfos(ctx context.Context, appToken, tableID string) ([]FieldInfo, error) {
	var (
		infos     []FieldInfo
		pageToken string
	)
	for {
		page, err := c.ListFields(ctx, appToken, tableID, pageToken)
		if err != nil {
			return nil, err
		}
		for _, field := range page.Items {
			infos = append(infos, field.Info())
		}
		if !page.HasMore || page.PageToken == "" {
			return infos, nil
		}
		pageToken = page.PageToken
	}
}
