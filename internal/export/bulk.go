package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// BulkColumns is the column order of an Amazon Sponsored Products bulk sheet.
var BulkColumns = []string{
	"Product",
	"Entity",
	"Campaign Name (Informational only)",
	"Ad Group Name (Informational only)",
	"Portfolio Name (Informational only)",
	"State",
	"Campaign State (Informational only)",
	"Ad Group State (Informational only)",
	"Keyword Text",
	"Match Type",
	"Impressions",
	"Clicks",
	"Click-through Rate",
	"Spend",
	"Sales",
	"Orders",
	"Units",
	"Conversion Rate",
	"ACOS",
	"CPC",
	"ROAS",
}

const (
	bulkProduct   = "Sponsored Products"
	bulkEntity    = "Campaign Negative Keyword"
	bulkMatchType = "Negative Exact"
	bulkState     = "enabled"
	metricColumns = 11 // Impressions .. ROAS
)

// NegationRecord is one campaign-level negative exact keyword.
type NegationRecord struct {
	CampaignName  string
	PortfolioName string
	KeywordText   string
}

// Negations turns Wasted Adspend rows into negation records. Blank search
// terms are skipped and a term is negated once per campaign, compared
// case-insensitively.
func Negations(wasted []models.Row) []NegationRecord {
	type key struct{ term, campaign string }
	seen := map[key]struct{}{}
	out := []NegationRecord{}
	for _, r := range wasted {
		term := strings.TrimSpace(r.CustomerSearchTerm)
		campaign := strings.TrimSpace(r.CampaignName)
		k := key{strings.ToLower(term), campaign}
		if term == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, NegationRecord{
			CampaignName:  campaign,
			PortfolioName: strings.TrimSpace(r.PortfolioName),
			KeywordText:   term,
		})
	}
	return out
}

func (n NegationRecord) fields() []string {
	rec := []string{
		bulkProduct,
		bulkEntity,
		n.CampaignName,
		"",
		n.PortfolioName,
		bulkState,
		bulkState,
		"",
		n.KeywordText,
		bulkMatchType,
	}
	for i := 0; i < metricColumns; i++ {
		rec = append(rec, "0")
	}
	return rec
}

// WriteBulkCSV writes the negation bulk file for the given wasted rows and
// returns the number of records written.
func WriteBulkCSV(w io.Writer, wasted []models.Row) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(BulkColumns); err != nil {
		return 0, err
	}
	recs := Negations(wasted)
	for _, n := range recs {
		if err := cw.Write(n.fields()); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(recs), cw.Error()
}
