package converter

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/internal/validation"
)

func money() types.Document {
	return types.Document{"Amount": 1000.0, "CurrencyCode": "USD"}
}

func expectedAdGroup(tempID, name string) types.Document {
	return types.Document{
		"CampaignID":         "42",
		"tempAdgroupID":      tempID,
		"AdGroupName":        name,
		"Description":        "Test adgroup desc",
		"IsEnabled":          true,
		"IndustryCategoryID": int64(42),
		"RTBAttributes": types.Document{
			"BudgetSettings": types.Document{
				"Budget":        money(),
				"DailyBudget":   money(),
				"PacingEnabled": true,
			},
			"BaseBidCPM":        money(),
			"MaxBidCPM":         money(),
			"CreativeIds":       []any{int64(12), int64(12), int64(12)},
			"AudienceTargeting": types.Document{"AudienceId": int64(666)},
			"ROIGoal":           types.Document{"CPAInAdvertiserCurrency": money()},
			"AutoOptimizationSettings": types.Document{
				"IsBaseBidAutoOptimizationEnabled":      true,
				"IsAudienceAutoOptimizationEnabled":     true,
				"IsSiteAutoOptimizationEnabled":         true,
				"IsCreativeAutoOptimizationEnabled":     true,
				"IsSupplyVendorAutoOptimizationEnabled": true,
				"IsUseClicksAsConversionsEnabled":       true,
				"IsUseSecondaryConversionsEnabled":      true,
			},
		},
	}
}

func TestPipelineAdGroups(t *testing.T) {
	v, err := validation.VariantFor(validation.V1)
	if err != nil {
		t.Fatal(err)
	}
	p := Pipeline{
		Source: Source{
			Path:      filepath.Join("testdata", "create_adgroups.csv"),
			Format:    config.FormatLong,
			IDColumns: []string{v.CampaignKey, v.AdGroupKey},
			IncludeID: true,
		},
		Schema: v.AdGroupCreate(),
	}

	recs, err := p.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	// tempA sorts before tempB even though tempB comes first in the file.
	if !reflect.DeepEqual(recs[0].Keys, []string{"42", "tempA"}) {
		t.Fatalf("keys %v", recs[0].Keys)
	}
	if !reflect.DeepEqual(recs[0].Doc, expectedAdGroup("tempA", "Test adgroup")) {
		t.Fatalf("record 0:\n%#v", recs[0].Doc)
	}
	if !reflect.DeepEqual(recs[1].Doc, expectedAdGroup("tempB", "Test adgroup2")) {
		t.Fatalf("record 1:\n%#v", recs[1].Doc)
	}
}

func TestPipelineCampaign(t *testing.T) {
	v, _ := validation.VariantFor(validation.V1)
	p := Pipeline{
		Source: Source{
			Path:      filepath.Join("testdata", "create_campaigns.csv"),
			IDColumns: []string{v.CampaignKey},
			IncludeID: true,
		},
		Schema: v.CampaignCreate(),
	}

	recs, err := p.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := types.Document{
		"CampaignID":   "temporary",
		"AdvertiserId": int64(42),
		"CampaignName": "TEST",
		"Description":  "TEST",
		"Budget":       money(),
		"DailyBudget":  money(),
		"StartDate":    "2017",
		"EndDate":      "2017",
		"CampaignConversionReportingColumns": []any{
			types.Document{"TrackingTagId": int64(1), "ReportingColumnId": int64(11)},
			types.Document{"TrackingTagId": int64(1), "ReportingColumnId": int64(11)},
		},
	}
	if len(recs) != 1 || !reflect.DeepEqual(recs[0].Doc, want) {
		t.Fatalf("got %#v", recs)
	}
}

func TestPipelineIsRestartable(t *testing.T) {
	p := Pipeline{Source: Source{
		Path:      filepath.Join("testdata", "create_adgroups.csv"),
		IDColumns: []string{"CampaignID", "tempAdgroupID"},
	}}

	first, err := p.Collect()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("second pass differs from the first")
	}

	// Stopping early is fine as well.
	n := 0
	for _, err := range p.Records() {
		if err != nil {
			t.Fatal(err)
		}
		n++
		break
	}
	if n != 1 {
		t.Fatalf("got %d", n)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLiteralBudgetExample(t *testing.T) {
	p := Pipeline{
		Source: Source{
			Path:      writeFile(t, "create_campaigns.csv", "CampaignId,path,value\ntemporary,Budget__Amount,1000\ntemporary,Budget__CurrencyCode,USD\n"),
			IDColumns: []string{"CampaignId"},
		},
		Schema: validation.NewSchema(validation.RejectExtra, validation.Required("Budget", validation.Money())),
	}
	recs, err := p.Collect()
	if err != nil {
		t.Fatal(err)
	}
	want := types.Document{"Budget": types.Document{"Amount": 1000.0, "CurrencyCode": "USD"}}
	if len(recs) != 1 || !reflect.DeepEqual(recs[0].Doc, want) {
		t.Fatalf("got %#v", recs)
	}
}

func TestMissingRequiredColumns(t *testing.T) {
	ids := []string{"CampaignId", "tempAdGroupId"}
	all := []string{"CampaignId", "tempAdGroupId", "path", "value"}
	for _, missing := range all {
		t.Run(missing, func(t *testing.T) {
			var header []string
			for _, c := range all {
				if c != missing {
					header = append(header, c)
				}
			}
			path := writeFile(t, "create_adgroups.csv", strings.Join(header, ",")+"\n1,2,3\n")
			_, err := Pipeline{Source: Source{Path: path, IDColumns: ids}}.Collect()

			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigError, got %v", err)
			}
			if !strings.Contains(err.Error(), "'"+missing+"'") || !strings.Contains(err.Error(), path) {
				t.Fatalf("error should name %s and the file: %v", missing, err)
			}
		})
	}
}

func TestValidationErrorCarriesSource(t *testing.T) {
	path := writeFile(t, "create_campaigns.csv", "CampaignId,path,value\nc1,Budget__Amount,lots\nc1,Budget__CurrencyCode,USD\n")
	p := Pipeline{
		Source: Source{Path: path, IDColumns: []string{"CampaignId"}},
		Schema: validation.NewSchema(validation.AllowExtra, validation.Required("Budget", validation.Money())),
	}
	_, err := p.Collect()
	var ve *types.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "Budget.Amount" || !strings.Contains(ve.Source, path) || !strings.Contains(ve.Source, "c1") {
		t.Fatalf("unexpected %+v", ve)
	}
}

func TestWideFormat(t *testing.T) {
	content := "dummy_campaign_id,payload\n" +
		"2,\"{\"\"CampaignName\"\": \"\"B\"\"}\"\n" +
		"1,\"{\"\"CampaignName\"\": \"\"A\"\", \"\"AdvertiserId\"\": 7}\"\n"
	p := Pipeline{Source: Source{
		Path:      writeFile(t, "create_campaigns.csv", content),
		Format:    config.FormatWide,
		IDColumns: []string{"dummy_campaign_id"},
		IDFields:  []string{"CampaignId"},
		IncludeID: true,
	}}
	recs, err := p.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d", len(recs))
	}
	// File order is kept.
	if recs[0].Key() != "2" || recs[0].Doc["CampaignName"] != "B" || recs[0].Doc["CampaignId"] != "2" {
		t.Fatalf("record 0 %#v", recs[0])
	}
	if recs[1].Doc["AdvertiserId"] != 7.0 {
		t.Fatalf("record 1 %#v", recs[1])
	}
	if recs[1].Row["dummy_campaign_id"] != "1" {
		t.Fatalf("row not kept: %#v", recs[1].Row)
	}
}

func TestWideFormatBadPayload(t *testing.T) {
	p := Pipeline{Source: Source{
		Path:      writeFile(t, "put_adgroups.csv", "dummy_campaign_id,payload\n1,not json\n"),
		Format:    config.FormatWide,
		IDColumns: []string{"dummy_campaign_id"},
	}}
	_, err := p.Collect()
	var ve *types.ValidationError
	if !errors.As(err, &ve) || ve.Path != "payload" {
		t.Fatalf("want payload ValidationError, got %v", err)
	}
}

func TestFlatFormat(t *testing.T) {
	p := Pipeline{
		Source: Source{
			Path:      writeFile(t, "input.csv", "foo,count,Budget__Amount,Budget__CurrencyCode\n\"Robin\",42,1,USD\nAhoj,666,2,USD\n"),
			Format:    config.FormatFlat,
			IDColumns: []string{"foo"},
			IncludeID: true,
		},
		Schema: validation.NewSchema(validation.RejectExtra,
			validation.Required("foo", validation.String()),
			validation.Required("count", validation.Int()),
			validation.Required("Budget", validation.Money()),
		),
	}
	recs, err := p.Collect()
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Document{
		{"foo": "Robin", "count": int64(42), "Budget": types.Document{"Amount": 1.0, "CurrencyCode": "USD"}},
		{"foo": "Ahoj", "count": int64(666), "Budget": types.Document{"Amount": 2.0, "CurrencyCode": "USD"}},
	}
	for i := range want {
		if !reflect.DeepEqual(recs[i].Doc, want[i]) {
			t.Fatalf("record %d: %#v", i, recs[i].Doc)
		}
	}
}

func TestFlatFormatNestsDeep(t *testing.T) {
	src := Source{
		Path: writeFile(t, "adgroups.csv", "AdGroupId,RTBAttributes__BudgetSettings__Budget__Amount,RTBAttributes__BudgetSettings__Budget__CurrencyCode,RTBAttributes__CreativeIds___0,RTBAttributes__CreativeIds___1\n"+
			"ag1,5,USD,cr1,cr2\n"),
		Format:    config.FormatFlat,
		IDColumns: []string{"AdGroupId"},
		IncludeID: true,
	}
	var docs []types.Document
	for rec, err := range src.Records() {
		if err != nil {
			t.Fatal(err)
		}
		docs = append(docs, rec.Doc)
	}
	want := types.Document{
		"AdGroupId": "ag1",
		"RTBAttributes": types.Document{
			"BudgetSettings": types.Document{
				"Budget": types.Document{"Amount": "5", "CurrencyCode": "USD"},
			},
			"CreativeIds": []any{"cr1", "cr2"},
		},
	}
	if len(docs) != 1 || !reflect.DeepEqual(docs[0], want) {
		t.Fatalf("docs %#v", docs)
	}
}

func TestFlatFormatConflictingColumns(t *testing.T) {
	src := Source{
		Path:      writeFile(t, "campaigns.csv", "CampaignId,Budget,Budget__Amount\nc1,1,2\n"),
		Format:    config.FormatFlat,
		IDColumns: []string{"CampaignId"},
	}
	for _, err := range src.Records() {
		var ve *types.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		return
	}
	t.Fatal("no records")
}
