// Package normalizer canonicalizes raw provider billing payloads into the
// uniform CostRecord shape consumed by the analytics pipeline.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// RawRecord is one provider-native billing line item as delivered by a
// connector. The field names differ per provider; the normalizer resolves
// them through per-provider alias lists and never interprets unknown keys.
type RawRecord map[string]any

// Field aliases per provider, in lookup order. Mirrors the field vocabulary
// of the AWS CUR, Azure Cost Management export, and GCP billing export.
var (
	resourceIDKeys = []string{"resource_id", "resourceId", "resource_name", "ResourceId"}
	serviceKeys    = []string{"service", "product_name", "serviceName", "service_description"}
	regionKeys     = []string{"region", "location", "resourceLocation"}
	timestampKeys  = []string{"timestamp", "usage_start", "usage_start_time", "date", "UsageStartDate"}
	amountKeys     = []string{"amount", "cost", "unblended_cost", "costInBillingCurrency"}
	currencyKeys   = []string{"currency", "cost_currency", "billingCurrency", "currency_code"}
	usageKeys      = []string{"usage_quantity", "usage_amount", "quantity"}
	tagsKeys       = []string{"tags", "labels"}
)

// SkippedRecord describes one raw record rejected during normalization.
// Reason wraps ErrMalformedRecord or ErrUnknownCurrency.
type SkippedRecord struct {
	Index  int
	Reason error
}

// BatchResult is the outcome of normalizing one raw batch. Records are
// deduplicated by composite key with the last occurrence winning; rejected
// records appear in Skipped and never abort the batch.
type BatchResult struct {
	Records []models.CostRecord
	Skipped []SkippedRecord
}

// Normalizer converts raw provider batches into canonical CostRecords.
// It holds the currency conversion table for the reporting currency and has
// no side effects beyond returning the canonical sequence; persistence is
// the caller's responsibility.
type Normalizer struct {
	// rates maps an ISO currency code to its conversion rate into the
	// reporting currency (USD). USD itself needs no entry.
	rates  map[string]decimal.Decimal
	logger *zap.Logger
}

// New returns a Normalizer using the supplied conversion table.
// A nil logger is replaced with zap.NewNop().
func New(rates map[string]decimal.Decimal, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized[strings.ToUpper(code)] = rate
	}
	return &Normalizer{rates: normalized, logger: logger}
}

// NormalizeBatch canonicalizes one raw batch for a single provider/account.
//
// Contract, in order per record: reject when resource_id or timestamp is
// missing (ErrMalformedRecord); convert the amount into the reporting
// currency (ErrUnknownCurrency when the code has no table entry); truncate
// the timestamp to hour granularity in UTC. Duplicate composite keys within
// the batch keep the last-seen value. Normalizing the same batch twice yields
// the same record set.
func (n *Normalizer) NormalizeBatch(provider models.Provider, accountID string, batch []RawRecord) BatchResult {
	var result BatchResult

	// Dedup index: composite key → position in result.Records.
	seen := make(map[models.RecordKey]int, len(batch))

	for i, raw := range batch {
		rec, err := n.normalizeOne(provider, accountID, raw)
		if err != nil {
			n.logger.Warn("skipping raw record",
				zap.String("provider", string(provider)),
				zap.String("account_id", accountID),
				zap.Int("index", i),
				zap.Error(err),
			)
			result.Skipped = append(result.Skipped, SkippedRecord{Index: i, Reason: err})
			continue
		}

		key := rec.Key()
		if pos, dup := seen[key]; dup {
			result.Records[pos] = rec // last-seen wins
			continue
		}
		seen[key] = len(result.Records)
		result.Records = append(result.Records, rec)
	}

	return result
}

// normalizeOne converts a single raw record or returns a classified error.
func (n *Normalizer) normalizeOne(provider models.Provider, accountID string, raw RawRecord) (models.CostRecord, error) {
	resourceID, ok := lookupString(raw, resourceIDKeys)
	if !ok || resourceID == "" {
		return models.CostRecord{}, fmt.Errorf("%w: missing resource_id", models.ErrMalformedRecord)
	}

	ts, ok := lookupTime(raw, timestampKeys)
	if !ok {
		return models.CostRecord{}, fmt.Errorf("%w: missing or unparsable timestamp (resource %s)", models.ErrMalformedRecord, resourceID)
	}

	amount, _ := lookupFloat(raw, amountKeys)
	currency, ok := lookupString(raw, currencyKeys)
	if !ok || currency == "" {
		currency = "USD"
	}

	amountUSD, err := n.convert(amount, currency)
	if err != nil {
		return models.CostRecord{}, fmt.Errorf("%w (resource %s)", err, resourceID)
	}

	service, _ := lookupString(raw, serviceKeys)
	region, _ := lookupString(raw, regionKeys)
	usage, _ := lookupFloat(raw, usageKeys)

	return models.CostRecord{
		Provider:      provider,
		AccountID:     accountID,
		ResourceID:    resourceID,
		Service:       service,
		Region:        region,
		Timestamp:     ts.UTC().Truncate(time.Hour),
		AmountUSD:     amountUSD,
		UsageQuantity: usage,
		Tags:          lookupTags(raw),
	}, nil
}

// convert applies the conversion table to amount. Conversion is done in
// decimal arithmetic and rounded to 6 places so repeated normalization of the
// same input produces bit-identical output.
func (n *Normalizer) convert(amount float64, currency string) (float64, error) {
	code := strings.ToUpper(currency)
	if code == "USD" {
		return amount, nil
	}
	rate, ok := n.rates[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownCurrency, code)
	}
	converted, _ := decimal.NewFromFloat(amount).Mul(rate).Round(6).Float64()
	return converted, nil
}

// lookupString returns the first present, string-typed value among keys.
func lookupString(raw RawRecord, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// lookupFloat returns the first present numeric value among keys.
// JSON decoding yields float64; int is accepted for hand-built batches and
// string for connectors that pass amounts through provider-native (Cost
// Explorer and the billing exports all quote amounts as strings).
func lookupFloat(raw RawRecord, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case decimal.Decimal:
			f, _ := n.Float64()
			return f, true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// timestampLayouts are the accepted string timestamp forms, most specific
// first. Hour-granularity forms appear in Azure exports.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15",
	"2006-01-02",
}

// lookupTime returns the first present, parsable timestamp among keys.
func lookupTime(raw RawRecord, keys []string) (time.Time, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			for _, layout := range timestampLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, true
				}
			}
		}
	}
	return time.Time{}, false
}

// lookupTags extracts a string-map tag set when present.
func lookupTags(raw RawRecord) map[string]string {
	for _, k := range tagsKeys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch tags := v.(type) {
		case map[string]string:
			return tags
		case map[string]any:
			out := make(map[string]string, len(tags))
			for key, val := range tags {
				if s, ok := val.(string); ok {
					out[key] = s
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
