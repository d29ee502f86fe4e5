package fda

import (
	"strings"
	"time"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// enforcementRecord is the raw openFDA enforcement shape. It stays
// internal to this package; only the canonical Recall leaves it.
type enforcementRecord struct {
	Status               string `json:"status"`
	ProductDescription   string `json:"product_description"`
	RecallingFirm        string `json:"recalling_firm"`
	RecallInitiationDate string `json:"recall_initiation_date"`
	ReasonForRecall      string `json:"reason_for_recall"`
	Classification       string `json:"classification"`
	DistributionPattern  string `json:"distribution_pattern"`
	CodeInfo             string `json:"code_info"`
	RecallNumber         string `json:"recall_number"`
}

// The feed reports these lifecycle states for recalls that are no longer
// actionable; they are filtered out rather than ingested.
var closedStatuses = map[string]bool{
	"terminated": true,
	"completed":  true,
	"closed":     true,
}

const dateLayout = "20060102"

// Normalize maps an enforcement record into the canonical Recall shape.
//
// Policy, in order: closed recalls and records without a display name are
// rejected; an unparseable initiation date falls back to today (presence
// beats recency); the product identifier comes from a UPC/EAN token in
// code_info, then from the recall number as a synthetic key, and a record
// with neither is rejected because no dedup key can be formed.
func (r enforcementRecord) Normalize(today time.Time) recall.NormalizeResult {
	if closedStatuses[strings.ToLower(strings.TrimSpace(r.Status))] {
		return recall.Reject("recall is no longer active")
	}

	productName := strings.TrimSpace(r.ProductDescription)
	if productName == "" {
		return recall.Reject("missing product description")
	}

	recallDate, err := time.Parse(dateLayout, r.RecallInitiationDate)
	if err != nil {
		recallDate = today
	}

	productID := recall.ExtractProductID(r.CodeInfo)
	if productID == "" {
		productID = recall.SyntheticProductID(SourceName, r.RecallNumber)
	}
	if productID == "" {
		return recall.Reject("no product identifier or recall number")
	}

	rec := recall.Recall{
		ProductID:           productID,
		ProductName:         productName,
		BrandName:           r.RecallingFirm,
		RecallDate:          recallDate,
		Reason:              r.ReasonForRecall,
		Severity:            r.Classification,
		FirmName:            r.RecallingFirm,
		DistributionPattern: r.DistributionPattern,
		Source:              SourceName,
	}
	return recall.Accept(rec.Truncated())
}
