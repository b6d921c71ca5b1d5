package staging

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCampaignsRoundTrip(t *testing.T) {
	s := newStore(t)
	err := s.PutCampaigns([]types.StagedRecord{
		{CampaignID: "temporary", Payload: types.Document{"CampaignName": "TEST", "AdvertiserId": int64(42)}},
		{CampaignID: "alpha", Payload: types.Document{"CampaignName": "A"}},
	})
	if err != nil {
		t.Fatalf("PutCampaigns: %v", err)
	}

	got, err := s.Campaigns()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].CampaignID != "alpha" || got[1].CampaignID != "temporary" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Payload["AdvertiserId"] != json.Number("42") {
		t.Fatalf("payload %#v", got[1].Payload)
	}
}

func TestAdGroupsByCampaign(t *testing.T) {
	s := newStore(t)
	err := s.PutAdGroups([]types.StagedRecord{
		{CampaignID: "10", AdGroupID: "a", Payload: types.Document{"AdGroupName": "ten-a"}},
		{CampaignID: "1", AdGroupID: "b", Payload: types.Document{"AdGroupName": "one-b"}},
		{CampaignID: "1", AdGroupID: "a", Payload: types.Document{"AdGroupName": "one-a"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	one, err := s.AdGroups("1")
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 2 || one[0].AdGroupID != "a" || one[1].AdGroupID != "b" || one[0].CampaignID != "1" {
		t.Fatalf("campaign 1: %+v", one)
	}
	if one[0].Payload["AdGroupName"] != "one-a" {
		t.Fatalf("payload %#v", one[0].Payload)
	}

	ids, err := s.AdGroupCampaignIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "10" {
		t.Fatalf("ids %v", ids)
	}
}

func TestRowKept(t *testing.T) {
	s := newStore(t)
	row := types.FlatRow{"dummy_campaign_id": "c1", "payload": `{"CampaignId":"abc"}`}
	err := s.PutCampaigns([]types.StagedRecord{
		{CampaignID: "000000", Payload: types.Document{"CampaignId": "abc"}, Row: row},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Campaigns()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Row["payload"] != row["payload"] || got[0].Row["dummy_campaign_id"] != "c1" {
		t.Fatalf("row %+v", got)
	}
}

func TestDuplicateFailsWholeBatch(t *testing.T) {
	s := newStore(t)
	err := s.PutCampaigns([]types.StagedRecord{
		{CampaignID: "x", Payload: types.Document{}},
		{CampaignID: "y", Payload: types.Document{}},
		{CampaignID: "x", Payload: types.Document{}},
	})
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	got, err := s.Campaigns()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("batch was partially committed: %+v", got)
	}
}

func TestOpenWipesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutCampaigns([]types.StagedRecord{{CampaignID: "old", Payload: types.Document{}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Campaigns()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("previous run leaked: %+v", got)
	}
}

func TestRejectsBadIdentifiers(t *testing.T) {
	s := newStore(t)
	for _, rec := range []types.StagedRecord{
		{CampaignID: "", Payload: types.Document{}},
		{CampaignID: "a\x1fb", Payload: types.Document{}},
	} {
		if err := s.PutCampaigns([]types.StagedRecord{rec}); err == nil {
			t.Fatalf("accepted %q", rec.CampaignID)
		}
	}
}
