package usda

import (
	"strings"
	"time"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// fsisNotice is the raw FSIS recall API shape. Field names follow the
// Drupal-style keys the endpoint emits.
type fsisNotice struct {
	Title          string `json:"field_title"`
	ActiveNotice   string `json:"field_active_notice"`
	ClosedDate     string `json:"field_closed_date"`
	RecallNumber   string `json:"field_recall_number"`
	RecallDate     string `json:"field_recall_date"`
	Classification string `json:"field_recall_classification"`
	Reason         string `json:"field_recall_reason"`
	Establishment  string `json:"field_establishment"`
	States         string `json:"field_states"`
	Summary        string `json:"field_summary"`
	ProductItems   string `json:"field_product_items"`
}

// FSIS publishes dates in more than one layout depending on the notice
// vintage; try each before falling back to today.
var dateLayouts = []string{"2006-01-02", "01/02/2006"}

// Normalize maps an FSIS notice into the canonical Recall shape, applying
// the same policy order as the FDA normalizer: inactive/closed notices and
// untitled notices are rejected, unparseable dates fall back to today, and
// a record with no identifier material cannot form a dedup key.
func (n fsisNotice) Normalize(today time.Time) recall.NormalizeResult {
	if strings.EqualFold(strings.TrimSpace(n.ActiveNotice), "false") || strings.TrimSpace(n.ClosedDate) != "" {
		return recall.Reject("notice is closed")
	}

	productName := strings.TrimSpace(n.Title)
	if productName == "" {
		return recall.Reject("missing notice title")
	}

	recallDate := today
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, strings.TrimSpace(n.RecallDate)); err == nil {
			recallDate = parsed
			break
		}
	}

	productID := recall.ExtractProductID(n.ProductItems)
	if productID == "" {
		productID = recall.ExtractProductID(n.Summary)
	}
	if productID == "" {
		productID = recall.SyntheticProductID(SourceName, n.RecallNumber)
	}
	if productID == "" {
		return recall.Reject("no product identifier or recall number")
	}

	rec := recall.Recall{
		ProductID:           productID,
		ProductName:         productName,
		BrandName:           n.Establishment,
		RecallDate:          recallDate,
		Reason:              n.Reason,
		Severity:            n.Classification,
		FirmName:            n.Establishment,
		DistributionPattern: n.States,
		Source:              SourceName,
	}
	return recall.Accept(rec.Truncated())
}
