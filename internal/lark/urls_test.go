package lark

import "testing"

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    BaseRef
		wantErr bool
	}{
		{
			name: "table and view",
			raw:  "https://acme.feishu.cn/base/bascnAbC?table=tblXyz&view=vewQ1",
			want: BaseRef{AppToken: "bascnAbC", TableID: "tblXyz", ViewID: "vewQ1"},
		},
		{
			name: "trailing slash and whitespace",
			raw:  "  https://acme.larksuite.com/base/bascnAbC/?table=tblXyz ",
			want: BaseRef{AppToken: "bascnAbC", TableID: "tblXyz"},
		},
		{name: "missing table", raw: "https://acme.feishu.cn/base/bascnAbC", wantErr: true},
		{name: "missing app token", raw: "https://acme.feishu.cn/base/?table=tblXyz", wantErr: true},
		{name: "wiki url", raw: "https://acme.feishu.cn/wiki/wikcn1?table=tblXyz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBaseURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseWikiURL(t *testing.T) {
	token, err := ParseWikiURL("https://acme.feishu.cn/wiki/wikcnAbC123?fromScene=spaceOverview")
	if err != nil {
		t.Fatalf("ParseWikiURL failed: %v", err)
	}
	if token != "wikcnAbC123" {
		t.Errorf("unexpected token %q", token)
	}

	for _, raw := range []string{"https://acme.feishu.cn/wiki/", "https://acme.feishu.cn/docx/abc", "::"} {
		if _, err := ParseWikiURL(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestFieldTypeWriteType(t *testing.T) {
	readOnly := []FieldType{FieldTypeLookup, FieldTypeFormula, FieldTypeCreatedTime, FieldTypeModifiedTime,
		FieldTypeCreatedUser, FieldTypeModifiedUser, FieldTypeAutoNumber}
	for _, ft := range readOnly {
		if got := ft.WriteType(); got != "" {
			t.Errorf("type %d is read-only, got write type %q", ft, got)
		}
	}

	if got := FieldTypeMultiSelect.WriteType(); got != "array<string>" {
		t.Errorf("unexpected multi-select write type %q", got)
	}
	if got := FieldTypeCheckbox.WriteType(); got != "boolean" {
		t.Errorf("unexpected checkbox write type %q", got)
	}
}
