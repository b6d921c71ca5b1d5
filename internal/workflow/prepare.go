package workflow

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/converter"
	"github.com/ginjaninja78/ttd-writer/internal/staging"
	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// DummyCampaignColumn is the placeholder campaign column of wide tables.
const DummyCampaignColumn = "dummy_campaign_id"

// Entities, as used in staging, metrics and logs.
const (
	entityCampaign = "campaign"
	entityAdGroup  = "adgroup"
)

// tableReader says how one input table is read and staged.
type tableReader struct {
	entity string
	source converter.Source
	schema converter.Validator
	stage  func(i int, rec types.Record) (types.StagedRecord, error)
}

// Prepare validates every table of plan into the staging store. Nothing is
// sent anywhere; an error here means the run must not proceed.
func (r *Runner) Prepare(plan Plan) error {
	if err := r.Store.Reset(); err != nil {
		return fmt.Errorf("reset staging store: %w", err)
	}

	for _, table := range utils.KnownTables {
		path, ok := plan.Tables[table]
		if !ok {
			continue
		}
		tr, err := r.reader(table, path)
		if err != nil {
			return err
		}
		if err := r.stageTable(table, tr); err != nil {
			return err
		}
	}

	if plan.Action == CreateCampaignsAndAdGroups {
		return r.checkOrphans()
	}
	return nil
}

func (r *Runner) stageTable(table string, tr tableReader) error {
	p := converter.Pipeline{Source: tr.source, Schema: tr.schema, Log: r.Log}
	recs, err := p.Collect()
	if err != nil {
		return err
	}

	staged := make([]types.StagedRecord, 0, len(recs))
	for i, rec := range recs {
		s, err := tr.stage(i, rec)
		if err != nil {
			return err
		}
		staged = append(staged, s)
	}

	put := r.Store.PutCampaigns
	if tr.entity == entityAdGroup {
		put = r.Store.PutAdGroups
	}
	if err := put(staged); err != nil {
		return fmt.Errorf("stage %s: %w", table, err)
	}

	r.Metrics.Staged(tr.entity, len(staged))
	r.Log.Info("staged input table", zap.String("table", table), zap.Int("records", len(staged)))
	return nil
}

// reader builds the reading and staging rules of table for the configured
// schema version and input format.
func (r *Runner) reader(table, path string) (tableReader, error) {
	v := r.variant
	format := r.Config.InputFormat
	src := converter.Source{Path: path, Format: format, CSV: r.Config.CSVSettings}
	wide := format == config.FormatWide

	switch table {
	case utils.TableCreateCampaigns:
		src.IncludeID = true
		src.IDColumns = []string{v.CampaignKey}
		if wide {
			src.IDColumns, src.IDFields = []string{DummyCampaignColumn}, []string{v.CampaignKey}
		}
		return tableReader{
			entity: entityCampaign,
			source: src,
			schema: v.CampaignCreate(),
			stage: func(_ int, rec types.Record) (types.StagedRecord, error) {
				return types.StagedRecord{
					CampaignID: rec.Key(),
					Payload:    strip(rec.Doc, v.CampaignKey),
				}, nil
			},
		}, nil

	case utils.TableCreateAdGroups:
		src.IncludeID = true
		src.IDColumns = []string{v.CampaignKey, v.AdGroupKey}
		if wide {
			src.IDColumns, src.IDFields = []string{DummyCampaignColumn}, []string{v.CampaignKey}
		}
		return tableReader{
			entity: entityAdGroup,
			source: src,
			schema: v.AdGroupCreate(),
			stage: func(i int, rec types.Record) (types.StagedRecord, error) {
				adGroup := sequenceID(i)
				if len(rec.Keys) > 1 {
					adGroup = rec.Keys[1]
				}
				return types.StagedRecord{
					CampaignID: rec.Key(),
					AdGroupID:  adGroup,
					Payload:    strip(rec.Doc, v.CampaignKey, v.AdGroupKey),
				}, nil
			},
		}, nil

	case utils.TableUpdateCampaigns:
		if !wide {
			src.IncludeID = true
			src.IDColumns = []string{"CampaignId"}
		}
		return tableReader{
			entity: entityCampaign,
			source: src,
			schema: v.CampaignUpdate(),
			stage: func(_ int, rec types.Record) (types.StagedRecord, error) {
				return types.StagedRecord{CampaignID: idOf(rec.Doc["CampaignId"]), Payload: rec.Doc}, nil
			},
		}, nil

	case utils.TableUpdateAdGroups:
		if !wide {
			src.IncludeID = true
			src.IDColumns = []string{"AdGroupId"}
		}
		return tableReader{
			entity: entityAdGroup,
			source: src,
			schema: v.AdGroupUpdate(),
			stage: func(_ int, rec types.Record) (types.StagedRecord, error) {
				return types.StagedRecord{
					CampaignID: staging.NoCampaign,
					AdGroupID:  idOf(rec.Doc["AdGroupId"]),
					Payload:    rec.Doc,
				}, nil
			},
		}, nil

	case utils.TableCloneCampaigns, utils.TablePutAdGroups:
		src.Format = config.FormatWide
		t, err := converter.LoadTable(path, r.Config.CSVSettings)
		if err != nil {
			return tableReader{}, err
		}
		r.headers[table] = t.Headers

		if table == utils.TableCloneCampaigns {
			return tableReader{
				entity: entityCampaign,
				source: src,
				schema: v.CampaignClone(),
				stage: func(i int, rec types.Record) (types.StagedRecord, error) {
					return types.StagedRecord{CampaignID: sequenceID(i), Payload: rec.Doc, Row: rec.Row}, nil
				},
			}, nil
		}
		return tableReader{
			entity: entityAdGroup,
			source: src,
			schema: v.AdGroupUpdate(),
			stage: func(i int, rec types.Record) (types.StagedRecord, error) {
				return types.StagedRecord{
					CampaignID: staging.NoCampaign,
					AdGroupID:  sequenceID(i),
					Payload:    rec.Doc,
					Row:        rec.Row,
				}, nil
			},
		}, nil
	}
	return tableReader{}, &types.InternalError{Msg: fmt.Sprintf("no reader for table %q", table)}
}

// checkOrphans fails when an ad group names a placeholder campaign that no
// campaign row defines.
func (r *Runner) checkOrphans() error {
	campaigns, err := r.Store.Campaigns()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(campaigns))
	for _, c := range campaigns {
		known[c.CampaignID] = true
	}

	ids, err := r.Store.AdGroupCampaignIDs()
	if err != nil {
		return err
	}
	var orphans []string
	for _, id := range ids {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		return types.NewConfigError("ad groups in %s reference campaigns missing from %s: %s",
			utils.TableCreateAdGroups, utils.TableCreateCampaigns, strings.Join(orphans, ", "))
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// sequenceID keys rows that carry no identifier of their own, preserving
// file order.
func sequenceID(i int) string {
	return fmt.Sprintf("%09d", i)
}

func strip(doc types.Document, fields ...string) types.Document {
	for _, f := range fields {
		delete(doc, f)
	}
	return doc
}

func idOf(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
