package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

func TestMoneyCoercion(t *testing.T) {
	schema := NewSchema(RejectExtra, Required("Budget", Money()))
	doc := types.Document{"Budget": types.Document{"Amount": "1000", "CurrencyCode": "USD"}}

	got, err := schema.Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := types.Document{"Budget": types.Document{"Amount": 1000.0, "CurrencyCode": "USD"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
	if doc["Budget"].(types.Document)["Amount"] != "1000" {
		t.Fatal("input document was modified")
	}
}

func TestMoneyRejectsOtherCurrency(t *testing.T) {
	_, err := Money().Apply(map[string]any{"Amount": 1.0, "CurrencyCode": "EUR"}, "Budget")
	var ve *types.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "Budget.CurrencyCode" || ve.Value != "EUR" {
		t.Fatalf("unexpected error %+v", ve)
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		in      any
		want    any
		wantErr bool
	}{
		{"int from string", Int(), "42", int64(42), false},
		{"int from padded string", Int(), " 7 ", int64(7), false},
		{"int from whole float", Int(), 12.0, int64(12), false},
		{"int rejects fraction", Int(), "4.2", nil, true},
		{"int rejects bool", Int(), true, nil, true},
		{"float from string", Float(), "1000", 1000.0, false},
		{"float from int", Float(), int64(3), 3.0, false},
		{"float rejects text", Float(), "abc", nil, true},
		{"float rejects NaN", Float(), "NaN", nil, true},
		{"bool True", Bool(), "True", true, false},
		{"bool False", Bool(), "False", false, false},
		{"bool yes", Bool(), "yes", true, false},
		{"bool zero", Bool(), "0", false, false},
		{"bool rejects maybe", Bool(), "maybe", nil, true},
		{"str", String(), "TEST", "TEST", false},
		{"str rejects number", String(), 42.0, nil, true},
		{"id from number", ID(), 42.0, "42", false},
		{"id rejects empty", ID(), " ", nil, true},
		{"literal", Literal("USD"), "USD", "USD", false},
		{"literal mismatch", Literal("USD"), "usd", nil, true},
		{"empty list", List(Int()), []any{}, []any{}, false},
		{"list of ints", List(Int()), []any{"12", "13"}, []any{int64(12), int64(13)}, false},
		{"list rejects scalar", List(Int()), "12", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Apply(tt.in, "field")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v want %#v", got, tt.want)
			}
		})
	}
}

func TestMissingRequiredNamesField(t *testing.T) {
	v, _ := VariantFor(V2)
	_, err := v.CampaignCreate().Validate(types.Document{"CampaignId": "tmp"})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"AdvertiserId", "CampaignName", "Budget", "EndDate"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error does not mention %s: %v", field, err)
		}
	}

	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("want Errors, got %T", err)
	}
	if len(errs) != 7 {
		t.Fatalf("want 7 missing fields, got %d: %v", len(errs), err)
	}
}

func TestBadValueNamesPathAndValue(t *testing.T) {
	schema := NewSchema(AllowExtra, Required("RTBAttributes", NewSchema(AllowExtra,
		Required("AudienceTargeting", NewSchema(AllowExtra, Required("AudienceId", Int()))),
	)))
	doc := types.Document{"RTBAttributes": types.Document{"AudienceTargeting": types.Document{"AudienceId": "six"}}}

	_, err := schema.Validate(doc)
	var ve *types.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "RTBAttributes.AudienceTargeting.AudienceId" || ve.Value != "six" {
		t.Fatalf("unexpected error %+v", ve)
	}
}

func TestExtraPolicy(t *testing.T) {
	doc := types.Document{"Name": "x", "Unknown": "y"}

	allow := NewSchema(AllowExtra, Required("Name", String()))
	got, err := allow.Validate(doc)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if got["Unknown"] != "y" {
		t.Fatalf("extra field dropped: %v", got)
	}

	reject := NewSchema(RejectExtra, Required("Name", String()))
	_, err = reject.Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "extra keys not allowed") {
		t.Fatalf("reject: %v", err)
	}
}

func TestReportingColumnsDecodeJSON(t *testing.T) {
	v, _ := VariantFor(V2)
	doc := types.Document{
		"CampaignId":   "temporary",
		"AdvertiserId": "42",
		"CampaignName": "TEST",
		"Description":  "TEST",
		"Budget":       types.Document{"Amount": "1000", "CurrencyCode": "USD"},
		"DailyBudget":  types.Document{"Amount": "1000", "CurrencyCode": "USD"},
		"StartDate":    "2017",
		"EndDate":      "2017",
		"CampaignConversionReportingColumns": []any{
			`{"TrackingTagId": 1, "ReportingColumnId": 11}`,
			`{"TrackingTagId": "2", "ReportingColumnId": 12, "Extra": true}`,
		},
	}

	got, err := v.CampaignCreate().Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cols := got["CampaignConversionReportingColumns"].([]any)
	want := []any{
		types.Document{"TrackingTagId": int64(1), "ReportingColumnId": int64(11)},
		types.Document{"TrackingTagId": int64(2), "ReportingColumnId": int64(12), "Extra": true},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Fatalf("got %#v want %#v", cols, want)
	}

	// Coercing the coerced document again changes nothing.
	again, err := v.CampaignCreate().Validate(got)
	if err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if !reflect.DeepEqual(again, got) {
		t.Fatalf("coercion is not idempotent:\n%#v\n%#v", again, got)
	}
}

func TestReportingColumnsRequiredInV1(t *testing.T) {
	v, err := VariantFor(V1)
	if err != nil {
		t.Fatal(err)
	}
	doc := types.Document{
		"CampaignID":   "temporary",
		"AdvertiserId": "42",
		"CampaignName": "TEST",
		"Description":  "TEST",
		"Budget":       types.Document{"Amount": "1", "CurrencyCode": "USD"},
		"DailyBudget":  types.Document{"Amount": "1", "CurrencyCode": "USD"},
		"StartDate":    "2017",
		"EndDate":      "2017",
	}
	_, err = v.CampaignCreate().Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "CampaignConversionReportingColumns") {
		t.Fatalf("v1 should require reporting columns: %v", err)
	}

	v2, _ := VariantFor(V2)
	doc["CampaignId"] = doc["CampaignID"]
	delete(doc, "CampaignID")
	if _, err := v2.CampaignCreate().Validate(doc); err != nil {
		t.Fatalf("v2 should accept missing reporting columns: %v", err)
	}
}

func TestVariantForUnknown(t *testing.T) {
	_, err := VariantFor("v3")
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func TestAdGroupUpdateAllowsPartialRTB(t *testing.T) {
	v, _ := VariantFor(V2)
	doc := types.Document{
		"AdGroupId": "abc123",
		"RTBAttributes": types.Document{
			"BaseBidCPM": types.Document{"Amount": "2.5", "CurrencyCode": "USD"},
		},
	}
	got, err := v.AdGroupUpdate().Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bid := got["RTBAttributes"].(types.Document)["BaseBidCPM"].(types.Document)
	if bid["Amount"] != 2.5 {
		t.Fatalf("amount %v", bid["Amount"])
	}
}
