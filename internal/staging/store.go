// Package staging persists validated records between ingestion and the API
// calls. Every input table of a run is validated into the store first, so
// an invalid row aborts the run before anything reaches the platform.
//
// Campaigns are keyed by campaign id, ad groups by (campaign id, ad group
// id). Keys iterate in byte order, which is the sort order of the
// identifier values. The store is wiped when opened; nothing survives from
// one run to the next.
package staging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

const (
	campaignPrefix = "campaign/"
	adGroupPrefix  = "adgroup/"
	sep            = "\x1f"
)

// NoCampaign is the campaign key of ad groups staged without one, such as
// ad-group updates addressed by AdGroupId alone.
const NoCampaign = "-"

// value is the stored form of a record.
type value struct {
	Payload types.Document `json:"payload"`
	Row     types.FlatRow  `json:"row,omitempty"`
}

// Store is a badger-backed staging collection.
type Store struct {
	db *badger.DB
}

// Open removes anything at dir and opens an empty store there.
func Open(dir string) (*Store, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset staging dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open staging store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only in memory.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open staging store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset drops every staged record.
func (s *Store) Reset() error {
	return s.db.DropAll()
}

// PutCampaigns stages campaigns in one transaction. A duplicate campaign id
// fails the whole batch.
func (s *Store) PutCampaigns(recs []types.StagedRecord) error {
	return s.put(recs, func(r types.StagedRecord) (string, error) {
		if err := checkID(r.CampaignID); err != nil {
			return "", err
		}
		return campaignPrefix + r.CampaignID, nil
	})
}

// PutAdGroups stages ad groups in one transaction. A duplicate
// (campaign id, ad group id) pair fails the whole batch.
func (s *Store) PutAdGroups(recs []types.StagedRecord) error {
	return s.put(recs, func(r types.StagedRecord) (string, error) {
		if err := checkID(r.CampaignID); err != nil {
			return "", err
		}
		if err := checkID(r.AdGroupID); err != nil {
			return "", err
		}
		return adGroupPrefix + r.CampaignID + sep + r.AdGroupID, nil
	})
}

// Campaigns returns every staged campaign ordered by campaign id.
func (s *Store) Campaigns() ([]types.StagedRecord, error) {
	return s.scan(campaignPrefix, campaignPrefix, func(id string) types.StagedRecord {
		return types.StagedRecord{CampaignID: id}
	})
}

// AdGroups returns the staged ad groups of one campaign, or of all
// campaigns when campaignID is empty, ordered by (campaign id, ad group id).
func (s *Store) AdGroups(campaignID string) ([]types.StagedRecord, error) {
	prefix := adGroupPrefix
	if campaignID != "" {
		prefix += campaignID + sep
	}
	return s.scan(prefix, adGroupPrefix, func(id string) types.StagedRecord {
		campaign, adGroup, _ := strings.Cut(id, sep)
		return types.StagedRecord{CampaignID: campaign, AdGroupID: adGroup}
	})
}

// AdGroupCampaignIDs returns the distinct campaign ids referenced by staged
// ad groups, in order.
func (s *Store) AdGroupCampaignIDs() ([]string, error) {
	groups, err := s.AdGroups("")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, g := range groups {
		if n := len(ids); n == 0 || ids[n-1] != g.CampaignID {
			ids = append(ids, g.CampaignID)
		}
	}
	return ids, nil
}

func (s *Store) put(recs []types.StagedRecord, keyOf func(types.StagedRecord) (string, error)) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range recs {
			k, err := keyOf(r)
			if err != nil {
				return err
			}
			key := []byte(k)

			_, err = txn.Get(key)
			if err == nil {
				return types.NewConfigError("duplicate identifier %s", describe(r))
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			val, err := json.Marshal(value{Payload: r.Payload, Row: r.Row})
			if err != nil {
				return fmt.Errorf("encode payload %s: %w", describe(r), err)
			}
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("staging batch of %d records is too large: %w", len(recs), err)
	}
	return err
}

// scan reads every record under prefix. idFrom rebuilds the identifiers
// from the key with cut removed.
func (s *Store) scan(prefix, cut string, idFrom func(string) types.StagedRecord) ([]types.StagedRecord, error) {
	var out []types.StagedRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var v value
			dec := json.NewDecoder(bytes.NewReader(val))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("decode staged record %q: %w", key, err)
			}

			rec := idFrom(strings.TrimPrefix(key, cut))
			rec.Payload = v.Payload
			rec.Row = v.Row
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkID(id string) error {
	if id == "" {
		return types.NewConfigError("empty identifier")
	}
	if strings.Contains(id, sep) {
		return types.NewConfigError("identifier %q contains a control character", id)
	}
	return nil
}

func describe(r types.StagedRecord) string {
	if r.AdGroupID == "" {
		return fmt.Sprintf("campaign=%q", r.CampaignID)
	}
	return fmt.Sprintf("campaign=%q adgroup=%q", r.CampaignID, r.AdGroupID)
}
