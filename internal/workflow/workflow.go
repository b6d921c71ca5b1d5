// Package workflow runs one writer job: it picks the action from the input
// tables present, validates every input into the staging store, and only
// then drives the API.
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/metrics"
	"github.com/ginjaninja78/ttd-writer/internal/staging"
	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/internal/validation"
	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// API is the part of the platform client the flows use.
type API interface {
	CreateCampaign(ctx context.Context, payload types.Document) (types.Document, error)
	CreateAdGroup(ctx context.Context, payload types.Document) (types.Document, error)
	UpdateCampaign(ctx context.Context, payload types.Document) (types.Document, error)
	UpdateAdGroup(ctx context.Context, payload types.Document) (types.Document, error)
	CloneCampaign(ctx context.Context, payload types.Document) (types.Document, error)
}

// Runner holds what one job needs.
type Runner struct {
	Config  *config.Config
	Files   *utils.FileManager
	Store   *staging.Store
	Log     *zap.Logger
	Metrics *metrics.Metrics

	variant validation.Variant
	headers map[string][]string
}

// NewRunner checks the schema version and returns a Runner.
func NewRunner(cfg *config.Config, files *utils.FileManager, store *staging.Store, log *zap.Logger, m *metrics.Metrics) (*Runner, error) {
	v, err := validation.VariantFor(cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		Config:  cfg,
		Files:   files,
		Store:   store,
		Log:     log,
		Metrics: m,
		variant: v,
		headers: map[string][]string{},
	}, nil
}

// Plan discovers the input tables and selects the action.
func (r *Runner) Plan() (Plan, error) {
	found, err := r.Files.DiscoverTables()
	if err != nil {
		return Plan{}, err
	}
	files, err := r.Files.InputFiles()
	if err != nil {
		return Plan{}, err
	}
	plan, err := DecideAction(found, files)
	if err != nil {
		return Plan{}, err
	}
	r.Log.Info("selected action", zap.String("action", string(plan.Action)),
		zap.Strings("tables", utils.TableNames(found)))
	return plan, nil
}

// Execute sends the staged records of plan through api.
func (r *Runner) Execute(ctx context.Context, plan Plan, api API) error {
	switch plan.Action {
	case CreateCampaigns:
		return r.createCampaigns(ctx, api)
	case CreateAdGroups:
		return r.createAdGroups(ctx, api)
	case CreateCampaignsAndAdGroups:
		return r.createCampaignsAndAdGroups(ctx, api)
	case UpdateCampaigns:
		return r.updateCampaigns(ctx, api)
	case UpdateAdGroups:
		return r.updateAdGroups(ctx, api)
	case UpdateCampaignsAndAdGroups:
		if err := r.updateCampaigns(ctx, api); err != nil {
			return err
		}
		return r.updateAdGroups(ctx, api)
	case CloneCampaigns:
		return r.echo(ctx, utils.TableCloneCampaigns, entityCampaign, "clone", api.CloneCampaign)
	case PutAdGroups:
		return r.echo(ctx, utils.TablePutAdGroups, entityAdGroup, "put", api.UpdateAdGroup)
	}
	return &types.InternalError{Msg: fmt.Sprintf("no flow for action %q", plan.Action)}
}

// Run prepares plan and, unless the job only verifies its inputs, executes
// it through api.
func (r *Runner) Run(ctx context.Context, plan Plan, api API) error {
	if err := r.Prepare(plan); err != nil {
		return err
	}
	if r.Config.Action == config.ActionVerifyInputs {
		r.Log.Info("inputs are valid, nothing sent", zap.String("action", string(plan.Action)))
		return nil
	}
	if api == nil {
		return &types.InternalError{Msg: "no API client for action " + r.Config.Action}
	}
	return r.Execute(ctx, plan, api)
}
