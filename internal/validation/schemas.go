package validation

import (
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Schema revisions. v1 keeps the field spelling of the first input tables
// ("CampaignID", "IndustryCategoryID"); v2 follows the API ("CampaignId").
const (
	V1 = "v1"
	V2 = "v2"
)

// Variant holds the field names and schemas of one schema revision.
type Variant struct {
	Version string

	// CampaignKey is the placeholder campaign identifier field.
	CampaignKey string

	// AdGroupKey is the placeholder ad-group identifier field.
	AdGroupKey string

	// IndustryKey is the ad-group industry category field.
	IndustryKey string

	// ReportingColumnsRequired makes CampaignConversionReportingColumns
	// mandatory on campaign creation.
	ReportingColumnsRequired bool
}

// VariantFor returns the named schema revision.
func VariantFor(version string) (Variant, error) {
	switch version {
	case V1:
		return Variant{
			Version:                  V1,
			CampaignKey:              "CampaignID",
			AdGroupKey:               "tempAdgroupID",
			IndustryKey:              "IndustryCategoryID",
			ReportingColumnsRequired: true,
		}, nil
	case V2, "":
		return Variant{
			Version:     V2,
			CampaignKey: "CampaignId",
			AdGroupKey:  "tempAdGroupId",
			IndustryKey: "IndustryCategoryId",
		}, nil
	}
	return Variant{}, types.NewConfigError("unknown schema version %q", version)
}

// Money is the {Amount, CurrencyCode} structure shared by every monetary
// field. Only USD is accepted.
func Money() *Schema {
	return NewSchema(RejectExtra,
		Required("Amount", Float()),
		Required("CurrencyCode", Literal("USD")),
	)
}

func reportingColumn() *Schema {
	return NewSchema(AllowExtra,
		Required("TrackingTagId", Int()),
		Required("ReportingColumnId", Int()),
	)
}

// reportingColumns is a list whose elements arrive JSON-encoded from the
// input table.
func reportingColumns() Rule {
	return List(JSON(reportingColumn()))
}

// CampaignCreate validates POST /campaign payloads.
func (v Variant) CampaignCreate() *Schema {
	reporting := Optional("CampaignConversionReportingColumns", reportingColumns())
	if v.ReportingColumnsRequired {
		reporting.Required = true
	}
	return NewSchema(AllowExtra,
		Required(v.CampaignKey, ID()),
		Required("AdvertiserId", Int()),
		Required("CampaignName", String()),
		Required("Description", String()),
		Required("Budget", Money()),
		Required("DailyBudget", Money()),
		Required("StartDate", String()),
		Required("EndDate", String()),
		reporting,
	)
}

// AdGroupCreate validates POST /adgroup payloads.
func (v Variant) AdGroupCreate() *Schema {
	return NewSchema(AllowExtra,
		Required(v.CampaignKey, ID()),
		Required("AdGroupName", String()),
		Required("Description", String()),
		Required("IsEnabled", Bool()),
		Required(v.IndustryKey, Int()),
		Required("RTBAttributes", rtbAttributes(true)),
	)
}

// CampaignUpdate validates PUT /campaign payloads. Only the real CampaignId
// is required.
func (v Variant) CampaignUpdate() *Schema {
	return NewSchema(AllowExtra,
		Required("CampaignId", ID()),
		Optional("AdvertiserId", Int()),
		Optional("CampaignName", String()),
		Optional("Description", String()),
		Optional("Budget", Money()),
		Optional("DailyBudget", Money()),
		Optional("StartDate", String()),
		Optional("EndDate", String()),
		Optional("CampaignConversionReportingColumns", reportingColumns()),
	)
}

// AdGroupUpdate validates PUT /adgroup payloads. Only the real AdGroupId is
// required.
func (v Variant) AdGroupUpdate() *Schema {
	return NewSchema(AllowExtra,
		Required("AdGroupId", ID()),
		Optional("CampaignId", ID()),
		Optional("AdGroupName", String()),
		Optional("Description", String()),
		Optional("IsEnabled", Bool()),
		Optional(v.IndustryKey, Int()),
		Optional("RTBAttributes", rtbAttributes(false)),
	)
}

// CampaignClone validates POST /campaign/clone payloads.
func (v Variant) CampaignClone() *Schema {
	return NewSchema(AllowExtra,
		Required("CampaignId", ID()),
		Optional("CampaignName", String()),
		Optional("StartDate", String()),
		Optional("EndDate", String()),
		Optional("Budget", Money()),
		Optional("DailyBudget", Money()),
	)
}

// rtbAttributes describes the RTBAttributes sub-document. With required
// false every field becomes optional, for partial updates.
func rtbAttributes(required bool) *Schema {
	field := Optional
	if required {
		field = Required
	}

	budget := NewSchema(AllowExtra,
		field("Budget", Money()),
		field("DailyBudget", Money()),
		field("PacingEnabled", Bool()),
	)
	audience := NewSchema(AllowExtra, field("AudienceId", Int()))
	roi := NewSchema(AllowExtra, field("CPAInAdvertiserCurrency", Money()))

	flags := []string{
		"IsBaseBidAutoOptimizationEnabled",
		"IsAudienceAutoOptimizationEnabled",
		"IsSiteAutoOptimizationEnabled",
		"IsCreativeAutoOptimizationEnabled",
		"IsSupplyVendorAutoOptimizationEnabled",
		"IsUseClicksAsConversionsEnabled",
		"IsUseSecondaryConversionsEnabled",
	}
	autoOpt := NewSchema(AllowExtra)
	for _, name := range flags {
		autoOpt.Fields = append(autoOpt.Fields, field(name, Bool()))
	}

	return NewSchema(AllowExtra,
		field("BudgetSettings", budget),
		field("BaseBidCPM", Money()),
		field("MaxBidCPM", Money()),
		Optional("CreativeIds", List(Int())),
		field("AudienceTargeting", audience),
		field("ROIGoal", roi),
		field("AutoOptimizationSettings", autoOpt),
	)
}
