package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// Row is one labelled transaction from the feed.
type Row struct {
	Event   domain.GenericTransaction
	IsFraud bool
}

// column aliases accepted in the CSV header, lowercased.
var columns = map[string][]string{
	"id":           {"id", "event_id", "tx_id"},
	"account":      {"account_id", "account", "nameorig"},
	"amount":       {"amount"},
	"currency":     {"currency"},
	"counterparty": {"counterparty", "namedest", "merchant"},
	"location":     {"location"},
	"channel":      {"channel", "type"},
	"device":       {"device_id", "device"},
	"timestamp":    {"timestamp", "time"},
	"label":        {"is_fraud", "isfraud", "label", "fraud"},
}

// ReadFeed parses a labelled CSV. Rows that fail to parse are skipped and
// counted. limit <= 0 reads everything.
func ReadFeed(r io.Reader, limit int) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int)
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		for field, aliases := range columns {
			if _, seen := index[field]; !seen && slices.Contains(aliases, col) {
				index[field] = i
			}
		}
	}
	for _, required := range []string{"account", "amount", "label"} {
		if _, ok := index[required]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", required)
		}
	}

	get := func(record []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		amount, err := decimal.NewFromString(get(record, "amount"))
		if err != nil || !amount.IsPositive() {
			skipped++
			continue
		}

		ev := domain.GenericTransaction{
			ID:           get(record, "id"),
			AccountID:    get(record, "account"),
			Amount:       amount,
			Currency:     get(record, "currency"),
			Counterparty: get(record, "counterparty"),
			Location:     get(record, "location"),
			Channel:      channelOf(get(record, "channel")),
			DeviceID:     get(record, "device"),
		}
		if ts := get(record, "timestamp"); ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				skipped++
				continue
			}
			ev.Timestamp = t
		}

		rows = append(rows, Row{Event: ev, IsFraud: isTrue(get(record, "label"))})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, skipped, nil
}

// channelOf maps free-form channel names, including PaySim's transaction
// types, onto the known channels.
func channelOf(s string) domain.Channel {
	switch strings.ToLower(s) {
	case "online", "ecommerce":
		return domain.ChannelOnline
	case "pos", "in_store":
		return domain.ChannelPOS
	case "atm", "cash_out":
		return domain.ChannelATM
	case "transfer", "payment", "debit":
		return domain.ChannelTransfer
	case "mobile", "app":
		return domain.ChannelMobile
	case "":
		return ""
	}
	return domain.Channel(strings.ToLower(s))
}

func isTrue(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "fraud":
		return true
	}
	return false
}

// Report accumulates the outcome of a replay. It is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	Errors         int

	statuses  map[domain.Status]int
	latencies []time.Duration
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{statuses: make(map[domain.Status]int)}
}

// Record adds one scored row.
func (r *Report) Record(predicted, actual bool, status domain.Status, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case predicted && actual:
		r.TruePositives++
	case predicted && !actual:
		r.FalsePositives++
	case !predicted && !actual:
		r.TrueNegatives++
	default:
		r.FalseNegatives++
	}
	r.statuses[status]++
	r.latencies = append(r.latencies, latency)
}

// Fail counts a row that could not be scored.
func (r *Report) Fail() {
	r.mu.Lock()
	r.Errors++
	r.mu.Unlock()
}

// Precision is TP / (TP + FP), or 0 with no positive predictions.
func (r *Report) Precision() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalsePositives)
}

// Recall is TP / (TP + FN), or 0 with no actual fraud.
func (r *Report) Recall() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (r *Report) F1() float64 {
	p, rc := r.Precision(), r.Recall()
	if p+rc == 0 {
		return 0
	}
	return 2 * p * rc / (p + rc)
}

// Accuracy is the share of correct predictions.
func (r *Report) Accuracy() float64 {
	total := r.TruePositives + r.FalsePositives + r.TrueNegatives + r.FalseNegatives
	return ratio(r.TruePositives+r.TrueNegatives, total)
}

// Percentile returns the p-th latency percentile (0 < p <= 100) using the
// nearest-rank method.
func (r *Report) Percentile(p float64) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)

	rank := int(float64(len(sorted))*p/100+0.999999) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// Statuses returns how often each status was returned.
func (r *Report) Statuses() map[domain.Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.Status]int, len(r.statuses))
	for k, v := range r.statuses {
		out[k] = v
	}
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
