package lark

import (
	"encoding/json"
)

// UserID identifies a user in its three id namespaces.
type UserID struct {
	UserID  string `json:"user_id,omitempty"`
	OpenID  string `json:"open_id,omitempty"`
	UnionID string `json:"union_id,omitempty"`
}

// Record is one Bitable row.
type Record struct {
	RecordID         string         `json:"record_id"`
	Fields           map[string]any `json:"fields"`
	CreatedBy        *UserID        `json:"created_by,omitempty"`
	CreatedTime      int64          `json:"created_time,omitempty"`
	LastModifiedBy   *UserID        `json:"last_modified_by,omitempty"`
	LastModifiedTime int64          `json:"last_modified_time,omitempty"`
}

// SearchRecordsResponse is one page of search results.
type SearchRecordsResponse struct {
	Items     []Record `json:"items"`
	PageToken string   `json:"page_token,omitempty"`
	HasMore   bool     `json:"has_more"`
	Total     int      `json:"total"`
}

// FilterConjunction joins filter conditions.
type FilterConjunction string

const (
	ConjunctionAnd FilterConjunction = "and"
	ConjunctionOr  FilterConjunction = "or"
)

// FilterOperator compares a field against the condition values.
type FilterOperator string

const (
	OperatorIs             FilterOperator = "is"
	OperatorIsNot          FilterOperator = "isNot"
	OperatorContains       FilterOperator = "contains"
	OperatorDoesNotContain FilterOperator = "doesNotContain"
	OperatorIsEmpty        FilterOperator = "isEmpty"
	OperatorIsNotEmpty     FilterOperator = "isNotEmpty"
	OperatorIsGreater      FilterOperator = "isGreater"
	OperatorIsGreaterEqual FilterOperator = "isGreaterEqual"
	OperatorIsLess         FilterOperator = "isLess"
	OperatorIsLessEqual    FilterOperator = "isLessEqual"
)

// Filter narrows a record search.
type Filter struct {
	Conjunction FilterConjunction `json:"conjunction" validate:"omitempty,oneof=and or"`
	Conditions  []FilterCondition `json:"conditions" validate:"dive"`
}

// FilterCondition is a single field comparison.
type FilterCondition struct {
	FieldName string         `json:"field_name" validate:"required"`
	Operator  FilterOperator `json:"operator" validate:"required,oneof=is isNot contains doesNotContain isEmpty isNotEmpty isGreater isGreaterEqual isLess isLessEqual"`
	Value     []string       `json:"value,omitempty"`
}

// Sort orders search results by one field.
type Sort struct {
	FieldName string `json:"field_name" validate:"required"`
	Desc      bool   `json:"desc"`
}

// SearchRecordsRequest holds optional search criteria. The zero value
// returns every record in table order.
type SearchRecordsRequest struct {
	ViewID          string   `json:"view_id,omitempty"`
	FieldNames      []string `json:"field_names,omitempty"`
	Sort            []Sort   `json:"sort,omitempty" validate:"dive"`
	Filter          *Filter  `json:"filter,omitempty"`
	AutomaticFields bool     `json:"automatic_fields,omitempty"`

	// Sent as query parameters.
	PageSize  int    `json:"-" validate:"omitempty,min=1,max=500"`
	PageToken string `json:"-"`
}

// RecordCreate is the payload of one record to create.
type RecordCreate struct {
	Fields map[string]any `json:"fields"`
}

// FieldType is the numeric Bitable field type.
type FieldType int

const (
	FieldTypeText         FieldType = 1
	FieldTypeNumber       FieldType = 2
	FieldTypeSingleSelect FieldType = 3
	FieldTypeMultiSelect  FieldType = 4
	FieldTypeDateTime     FieldType = 5
	FieldTypeCheckbox     FieldType = 7
	FieldTypeUser         FieldType = 11
	FieldTypePhone        FieldType = 13
	FieldTypeURL          FieldType = 15
	FieldTypeAttachment   FieldType = 17
	FieldTypeSingleLink   FieldType = 18
	FieldTypeLookup       FieldType = 19
	FieldTypeFormula      FieldType = 20
	FieldTypeDuplexLink   FieldType = 21
	FieldTypeLocation     FieldType = 22
	FieldTypeGroupChat    FieldType = 23
	FieldTypeCreatedTime  FieldType = 1001
	FieldTypeModifiedTime FieldType = 1002
	FieldTypeCreatedUser  FieldType = 1003
	FieldTypeModifiedUser FieldType = 1004
	FieldTypeAutoNumber   FieldType = 1005
)

// WriteType describes the JSON value to send when writing a field of this
// type. Computed and system fields are read-only and return "".
func (t FieldType) WriteType() string {
	switch t {
	case FieldTypeText, FieldTypeSingleSelect, FieldTypePhone, FieldTypeLocation:
		return "string"
	case FieldTypeNumber:
		return "number"
	case FieldTypeMultiSelect:
		return "array<string>"
	case FieldTypeDateTime:
		return "number (unix timestamp in milliseconds)"
	case FieldTypeCheckbox:
		return "boolean"
	case FieldTypeUser, FieldTypeGroupChat:
		return `array<{"id": string}>`
	case FieldTypeURL:
		return `{"text": string, "link": string}`
	case FieldTypeAttachment:
		return `array<{"file_token": string}>`
	case FieldTypeSingleLink, FieldTypeDuplexLink:
		return "array<string> (record ids)"
	default:
		return ""
	}
}

// FieldDescription accepts both the legacy plain string and the
// {"text": ...} object form of a field description.
type FieldDescription string

func (d *FieldDescription) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*d = FieldDescription(text)
		return nil
	}

	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*d = FieldDescription(obj.Text)
	return nil
}

// Field is a table column definition.
type Field struct {
	FieldName   string           `json:"field_name"`
	FieldID     string           `json:"field_id"`
	Type        FieldType        `json:"type"`
	Property    json.RawMessage  `json:"property,omitempty"`
	UIType      string           `json:"ui_type,omitempty"`
	Description FieldDescription `json:"description,omitempty"`
	IsPrimary   bool             `json:"is_primary,omitempty"`
}

// FieldsListResponse is one page of field definitions.
type FieldsListResponse struct {
	Items     []Field `json:"items"`
	PageToken string  `json:"page_token,omitempty"`
	HasMore   bool    `json:"has_more"`
	Total     int     `json:"total"`
}

// FieldInfo is the simplified view of a field used by tool callers to learn
// how to write records.
type FieldInfo struct {
	FieldName   string `json:"field_name"`
	Description string `json:"description,omitempty"`
	IsPrimary   bool   `json:"is_primary"`
	UIType      string `json:"ui_type,omitempty"`
	WriteType   string `json:"write_type,omitempty"`
}

// Info projects f onto FieldInfo.
func (f Field) Info() FieldInfo {
	return FieldInfo{
		FieldName:   f.FieldName,
		Description: string(f.Description),
		IsPrimary:   f.IsPrimary,
		UIType:      f.UIType,
		WriteType:   f.Type.WriteType(),
	}
}
