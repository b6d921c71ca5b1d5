package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/auditlog"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// =============================================================================
// CREATE
// =============================================================================

func (r *Runner) createCampaigns(ctx context.Context, api API) error {
	campaigns, err := r.Store.Campaigns()
	if err != nil {
		return err
	}
	for _, c := range campaigns {
		if _, err := r.createCampaign(ctx, api, c); err != nil {
			return err
		}
	}
	return nil
}

// createAdGroups handles ad groups whose campaign already exists; the
// campaign column holds the real id.
func (r *Runner) createAdGroups(ctx context.Context, api API) error {
	groups, err := r.Store.AdGroups("")
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := r.createAdGroup(ctx, api, g, g.CampaignID); err != nil {
			return err
		}
	}
	return nil
}

// createCampaignsAndAdGroups creates each campaign, then its ad groups with
// the placeholder campaign id replaced by the one the platform assigned.
// Nothing is rolled back on failure; the audit log shows what was created.
func (r *Runner) createCampaignsAndAdGroups(ctx context.Context, api API) error {
	campaigns, err := r.Store.Campaigns()
	if err != nil {
		return err
	}
	for _, c := range campaigns {
		realID, err := r.createCampaign(ctx, api, c)
		if err != nil {
			return err
		}

		groups, err := r.Store.AdGroups(c.CampaignID)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if err := r.createAdGroup(ctx, api, g, realID); err != nil {
				return err
			}
		}
	}
	return nil
}

// createCampaign returns the CampaignId the platform assigned.
func (r *Runner) createCampaign(ctx context.Context, api API, c types.StagedRecord) (string, error) {
	r.Log.Info("Creating campaign", zap.Any("name", c.Payload["CampaignName"]), zap.String("placeholder", c.CampaignID))
	resp, err := api.CreateCampaign(ctx, c.Payload)
	if err != nil {
		return "", fmt.Errorf("create campaign %q: %w", c.CampaignID, err)
	}
	r.Metrics.Written(entityCampaign, "create")

	realID := idOf(resp["CampaignId"])
	if realID == "" {
		return "", &types.InternalError{Msg: fmt.Sprintf("campaign %q was created but the response has no CampaignId", c.CampaignID)}
	}
	r.Log.Info("Success", zap.String("placeholder", c.CampaignID), zap.String("CampaignId", realID))
	return realID, nil
}

func (r *Runner) createAdGroup(ctx context.Context, api API, g types.StagedRecord, campaignID string) error {
	payload := g.Payload
	payload["CampaignId"] = campaignID

	r.Log.Info("Creating ad group", zap.Any("name", payload["AdGroupName"]), zap.String("CampaignId", campaignID))
	resp, err := api.CreateAdGroup(ctx, payload)
	if err != nil {
		body, _ := json.Marshal(payload)
		r.Log.Error("failed to create ad group", zap.String("payload", string(body)), zap.Error(err))
		return fmt.Errorf("create ad group %q of campaign %s: %w", g.AdGroupID, campaignID, err)
	}
	r.Metrics.Written(entityAdGroup, "create")
	r.Log.Info("Success", zap.Any("name", payload["AdGroupName"]), zap.Any("AdGroupId", resp["AdGroupId"]))
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

func (r *Runner) updateCampaigns(ctx context.Context, api API) error {
	campaigns, err := r.Store.Campaigns()
	if err != nil {
		return err
	}
	for _, c := range campaigns {
		if _, err := api.UpdateCampaign(ctx, c.Payload); err != nil {
			return fmt.Errorf("update campaign %s: %w", c.CampaignID, err)
		}
		r.Metrics.Written(entityCampaign, "update")
		r.Log.Info("Updated campaign", zap.String("CampaignId", c.CampaignID))
	}
	return nil
}

func (r *Runner) updateAdGroups(ctx context.Context, api API) error {
	groups, err := r.Store.AdGroups("")
	if err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := api.UpdateAdGroup(ctx, g.Payload); err != nil {
			return fmt.Errorf("update ad group %s: %w", g.AdGroupID, err)
		}
		r.Metrics.Written(entityAdGroup, "update")
		r.Log.Info("Updated ad group", zap.String("AdGroupId", g.AdGroupID))
	}
	return nil
}

// =============================================================================
// CLONE / PUT
// =============================================================================

type call func(ctx context.Context, payload types.Document) (types.Document, error)

// echo sends every staged row of table through send and writes the row,
// plus the response, to <table>_results.csv. With continue_on_error a failed
// row records the error text as its response and the flow moves on.
func (r *Runner) echo(ctx context.Context, table, entity, operation string, send call) (err error) {
	var recs []types.StagedRecord
	if entity == entityCampaign {
		recs, err = r.Store.Campaigns()
	} else {
		recs, err = r.Store.AdGroups("")
	}
	if err != nil {
		return err
	}

	out, err := auditlog.OpenEcho(ctx, r.Files.OutTable(table+"_results.csv"), r.headers[table])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	for i, rec := range recs {
		resp, sendErr := send(ctx, rec.Payload)
		var response string
		if sendErr != nil {
			response = sendErr.Error()
		} else {
			body, mErr := json.Marshal(resp)
			if mErr != nil {
				return fmt.Errorf("encode %s response: %w", table, mErr)
			}
			response = string(body)
			r.Metrics.Written(entity, operation)
		}

		if err := out.Write(rec.Row, response); err != nil {
			return err
		}

		if sendErr != nil {
			if !r.Config.ContinueOnError {
				return fmt.Errorf("%s row %d: %w", table, i+1, sendErr)
			}
			r.Metrics.Failed(operation)
			r.Log.Warn("row failed, continuing", zap.String("table", table), zap.Int("row", i+1), zap.Error(sendErr))
		}
	}
	r.Log.Info("wrote result table", zap.String("table", table+"_results.csv"), zap.Int("rows", len(recs)))
	return nil
}
