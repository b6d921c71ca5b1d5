package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// Action is what a run does with its input tables.
type Action string

const (
	CreateCampaigns            Action = "create campaigns"
	CreateAdGroups             Action = "create ad groups"
	CreateCampaignsAndAdGroups Action = "create campaigns and their ad groups"
	UpdateCampaigns            Action = "update campaigns"
	UpdateAdGroups             Action = "update ad groups"
	UpdateCampaignsAndAdGroups Action = "update campaigns and ad groups"
	CloneCampaigns             Action = "clone campaigns"
	PutAdGroups                Action = "put ad groups"
)

// combinations maps each accepted set of tables (sorted, comma-joined) to
// its action.
var combinations = map[string]Action{
	key(utils.TableCreateCampaigns):                            CreateCampaigns,
	key(utils.TableCreateAdGroups):                             CreateAdGroups,
	key(utils.TableCreateCampaigns, utils.TableCreateAdGroups): CreateCampaignsAndAdGroups,
	key(utils.TableUpdateCampaigns):                            UpdateCampaigns,
	key(utils.TableUpdateAdGroups):                             UpdateAdGroups,
	key(utils.TableUpdateCampaigns, utils.TableUpdateAdGroups): UpdateCampaignsAndAdGroups,
	key(utils.TableCloneCampaigns):                             CloneCampaigns,
	key(utils.TablePutAdGroups):                                PutAdGroups,
}

func key(tables ...string) string {
	s := slices.Clone(tables)
	slices.Sort(s)
	return strings.Join(s, ",")
}

// Plan is a selected action and the tables it reads, by table name.
type Plan struct {
	Action Action
	Tables map[string]string
}

// Has reports whether the plan reads table.
func (p Plan) Has(table string) bool {
	_, ok := p.Tables[table]
	return ok
}

// DecideAction selects the action for the tables found in the input
// directory. Any other combination, including none, is an internal error
// naming the recognised tables and every file in the directory.
func DecideAction(found map[string]string, files []string) (Plan, error) {
	names := utils.TableNames(found)
	action, ok := combinations[key(names...)]
	if !ok {
		return Plan{}, &types.InternalError{Msg: fmt.Sprintf(
			"don't know what action to perform, found tables %v, files in input directory %v", names, files)}
	}
	return Plan{Action: action, Tables: found}, nil
}
