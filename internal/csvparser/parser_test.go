package csvparser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

func TestParseQuotedJSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "create_campaigns.csv")
	content := "\ufeffdummy_campaign_id,payload\n" +
		"1,\"{\"\"CampaignName\"\": \"\"Spring, 2024\"\"}\"\n" +
		"\n" +
		"2\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Parse(p, config.CSVSettings{Delimiter: ","})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.SourceFile != p {
		t.Fatalf("source %q", table.SourceFile)
	}
	if len(table.Headers) != 2 || table.Headers[0] != "dummy_campaign_id" {
		t.Fatalf("headers %q", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(table.Rows))
	}
	if got := table.Rows[0]["payload"]; got != `{"CampaignName": "Spring, 2024"}` {
		t.Fatalf("payload %q", got)
	}
	if got := table.Rows[1]["payload"]; got != "" {
		t.Fatalf("short row should pad with empty string, got %q", got)
	}
}

func TestReadDelimiters(t *testing.T) {
	tests := []struct {
		delimiter string
		content   string
	}{
		{"tab", "a\tb\n1\t2\n"},
		{"pipe", "a|b\n1|2\n"},
		{";", "a;b\n1;2\n"},
		{"", "a,b\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.delimiter, func(t *testing.T) {
			table, err := Read(strings.NewReader(tt.content), config.CSVSettings{Delimiter: tt.delimiter})
			if err != nil {
				t.Fatal(err)
			}
			if table.Rows[0]["b"] != "2" {
				t.Fatalf("rows %v", table.Rows)
			}
		})
	}
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""), config.CSVSettings{})
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func TestRequireColumns(t *testing.T) {
	table := &types.Table{Headers: []string{"CampaignId", "path", "value"}, SourceFile: "in/tables/create_campaigns.csv"}
	if err := RequireColumns(table, "CampaignId", "path", "value"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	err := RequireColumns(table, "path", "tempAdGroupId")
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "tempAdGroupId") || !strings.Contains(err.Error(), "create_campaigns.csv") {
		t.Fatalf("error should name column and file: %v", err)
	}
}
