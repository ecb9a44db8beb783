package models

import "strings"

// Row is one normalized Search Term Report record.
type Row struct {
	CustomerSearchTerm string  `json:"customer_search_term"`
	KeywordText        string  `json:"keyword_text,omitempty"`
	CampaignName       string  `json:"campaign_name"`
	AdGroupName        string  `json:"ad_group_name"`
	PortfolioName      string  `json:"portfolio_name"`
	MatchType          string  `json:"match_type"`
	Impressions        int     `json:"impressions"`
	Clicks             int     `json:"clicks"`
	Orders             int     `json:"orders"`
	Units              int     `json:"units"`
	Spend              float64 `json:"spend"`
	Sales              float64 `json:"sales"`
	ACOS               float64 `json:"acos"`
	ConversionRate     float64 `json:"conversion_rate"`
	ClickThroughRate   float64 `json:"click_through_rate"`
	CPC                float64 `json:"cpc"`
	ROAS               float64 `json:"roas"`
}

// Match types that target a keyword explicitly. Everything else
// (auto, close-match, "-", empty) counts as untargeted.
const (
	MatchExact  = "exact"
	MatchPhrase = "phrase"
	MatchBroad  = "broad"
)

func normMatch(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// IsExact reports whether the row was served by an exact-match keyword.
func (r Row) IsExact() bool { return normMatch(r.MatchType) == MatchExact }

// IsTargeted reports whether the match type is exact, phrase or broad.
func (r Row) IsTargeted() bool {
	switch normMatch(r.MatchType) {
	case MatchExact, MatchPhrase, MatchBroad:
		return true
	}
	return false
}

// Thresholds parameterizes one classification pass.
type Thresholds struct {
	ClickThreshold    int     `json:"click_threshold" yaml:"click_threshold"`
	ACOSThreshold     float64 `json:"acos_threshold" yaml:"acos_threshold"`
	CVRThreshold      float64 `json:"cvr_threshold" yaml:"cvr_threshold"`
	LowClickThreshold int     `json:"low_click_threshold" yaml:"low_click_threshold"`
	OrderThreshold    int     `json:"order_threshold" yaml:"order_threshold"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ClickThreshold:    10,
		ACOSThreshold:     0.30,
		CVRThreshold:      0.10,
		LowClickThreshold: 10,
		OrderThreshold:    2,
	}
}

type Category string

const (
	WastedAdspend         Category = "Wasted Adspend"
	InefficientAdspend    Category = "Inefficient Adspend"
	ScalingOpportunity    Category = "Scaling Opportunity"
	HarvestingOpportunity Category = "Harvesting Opportunity"
)

// Categories lists every category in report order.
var Categories = []Category{WastedAdspend, InefficientAdspend, ScalingOpportunity, HarvestingOpportunity}

// Slug returns the snake_case form used in URLs, e.g. "wasted_adspend".
func (c Category) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "_")
}

// ParseCategory accepts a display name or a slug, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for _, c := range Categories {
		if c.Slug() == s {
			return c, true
		}
	}
	return "", false
}

type CategoryResult struct {
	Category Category `json:"category"`
	Rows     []Row    `json:"rows"`
}

// CategoryResults holds one result per category, in Categories order.
// A row may appear in several results.
type CategoryResults []CategoryResult

func (cr CategoryResults) Rows(c Category) []Row {
	for _, r := range cr {
		if r.Category == c {
			return r.Rows
		}
	}
	return nil
}

// OutputColumn is a consumer-facing column of a category row-set.
type OutputColumn struct {
	Header string
	Format string // text, int, currency, percent
	Value  func(Row) any
}

var OutputColumns = []OutputColumn{
	{"Customer Search Term", "text", func(r Row) any { return r.CustomerSearchTerm }},
	{"Campaign Name (Informational only)", "text", func(r Row) any { return r.CampaignName }},
	{"Ad Group Name (Informational only)", "text", func(r Row) any { return r.AdGroupName }},
	{"Portfolio Name (Informational only)", "text", func(r Row) any { return r.PortfolioName }},
	{"Match Type", "text", func(r Row) any { return r.MatchType }},
	{"Impressions", "int", func(r Row) any { return r.Impressions }},
	{"Clicks", "int", func(r Row) any { return r.Clicks }},
	{"Spend", "currency", func(r Row) any { return r.Spend }},
	{"Sales", "currency", func(r Row) any { return r.Sales }},
	{"Orders", "int", func(r Row) any { return r.Orders }},
	{"ACOS", "percent", func(r Row) any { return r.ACOS }},
	{"Conversion Rate", "percent", func(r Row) any { return r.ConversionRate }},
	{"CPC", "currency", func(r Row) any { return r.CPC }},
	{"ROAS", "currency", func(r Row) any { return r.ROAS }},
}

// CategorySummary aggregates one category (or the TOTAL line).
type CategorySummary struct {
	Category    string  `json:"category"`
	SearchTerms int     `json:"search_terms"`
	TotalClicks int     `json:"total_clicks"`
	TotalSpend  float64 `json:"total_spend"`
	TotalSales  float64 `json:"total_sales"`
	TotalOrders int     `json:"total_orders"`
	AvgACOS     float64 `json:"avg_acos"`
	AvgCVR      float64 `json:"avg_cvr"`
}
