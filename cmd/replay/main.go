// Replay tool for scoring a labelled transaction feed against fraudforge.
//
// Usage:
//
//	go run ./cmd/replay -csv /path/to/feed.csv -url http://localhost:8080
//
// This tool:
//  1. Reads labelled generic transactions from CSV (PaySim columns work too)
//  2. Posts each one to POST /evaluate/transaction
//  3. Compares the returned status with the fraud label
//  4. Reports the confusion matrix, precision, recall, F1 and latency
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

func main() {
	csvPath := flag.String("csv", "", "Path to labelled CSV feed")
	baseURL := flag.String("url", "http://localhost:8080", "fraudforge base URL")
	tenantID := flag.String("tenant", "replay", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum rows to replay (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	positive := flag.String("positive", string(domain.StatusFlagged), "Lowest status counted as a fraud prediction (review, flagged, blocked)")
	verbose := flag.Bool("verbose", false, "Print each result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: replay -csv /path/to/feed.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	threshold := domain.Status(*positive)
	if threshold.Rank() < 0 {
		fmt.Printf("ERROR: unknown status %q\n", *positive)
		os.Exit(1)
	}

	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|             FRAUDFORGE REPLAY - Labelled Feed                 |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("URL:         %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Positive:    status >= %s\n", threshold)
	fmt.Println()

	client := &http.Client{Timeout: 10 * time.Second}

	if err := checkHealth(client, *baseURL); err != nil {
		fmt.Printf("ERROR: fraudforge not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure fraudforge is running:")
		fmt.Println("  go run ./cmd/fraudforge")
		os.Exit(1)
	}
	fmt.Println("OK  fraudforge is healthy")

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	rows, skipped, err := ReadFeed(file, *limit)
	file.Close()
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("ERROR: no usable rows in feed")
		os.Exit(1)
	}

	fraud := 0
	for _, row := range rows {
		if row.IsFraud {
			fraud++
		}
	}
	fmt.Printf("OK  Loaded %d rows (%d skipped)\n", len(rows), skipped)
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraud, 100*float64(fraud)/float64(len(rows)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(rows)-fraud, 100*float64(len(rows)-fraud)/float64(len(rows)))

	fmt.Printf("\nReplaying with %d workers...\n", *workers)
	start := time.Now()
	report := replay(client, rows, *baseURL, *tenantID, *workers, threshold, *verbose)

	printResults(report, time.Since(start))
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func replay(client *http.Client, rows []Row, baseURL, tenantID string, numWorkers int, threshold domain.Status, verbose bool) *Report {
	report := NewReport()

	work := make(chan Row, 100)
	var wg sync.WaitGroup

	for i := 0; i < max(1, numWorkers); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for row := range work {
				begin := time.Now()
				result, err := evaluate(client, baseURL, tenantID, &row.Event)
				elapsed := time.Since(begin)

				if err != nil {
					report.Fail()
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", row.Event.AccountID, err)
					}
					continue
				}

				predicted := result.Status.Rank() >= threshold.Rank()
				report.Record(predicted, row.IsFraud, result.Status, elapsed)

				if verbose {
					mark := "ok"
					if predicted != row.IsFraud {
						mark = "xx"
					}
					fmt.Printf("%s %-12s | Amount: %12s | Fraud: %-5v | %-8s (%5.1f) | %s\n",
						mark,
						row.Event.AccountID,
						row.Event.Amount.StringFixed(2),
						row.IsFraud,
						result.Status,
						result.TotalScore,
						result.Label,
					)
				}
			}
		}()
	}

	for _, row := range rows {
		work <- row
	}
	close(work)

	wg.Wait()
	return report
}

func evaluate(client *http.Client, baseURL, tenantID string, ev *domain.GenericTransaction) (*domain.EvaluationResponse, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+"/evaluate/transaction", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.EvaluationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(r *Report, duration time.Duration) {
	fmt.Println("\n+---------------------------------------------------------------+")
	fmt.Println("|                        REPLAY RESULTS                         |")
	fmt.Println("+---------------------------------------------------------------+")

	scored := r.TruePositives + r.FalsePositives + r.TrueNegatives + r.FalseNegatives

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Scored:           %d\n", scored)
	fmt.Printf("   Actual fraud:     %d\n", r.TruePositives+r.FalseNegatives)
	fmt.Printf("   Actual non-fraud: %d\n", r.FalsePositives+r.TrueNegatives)
	fmt.Printf("   Errors:           %d\n", r.Errors)

	fmt.Printf("\nSTATUSES\n")
	statuses := r.Statuses()
	keys := make([]domain.Status, 0, len(statuses))
	for s := range statuses {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Rank() < keys[j].Rank() })
	for _, s := range keys {
		fmt.Printf("   %-10s %d\n", s, statuses[s])
	}

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    fraud      clean")
	fmt.Println("              +----------+----------+")
	fmt.Printf("   Actual  F  | %8d | %8d |  (TP, FN)\n", r.TruePositives, r.FalseNegatives)
	fmt.Println("              +----------+----------+")
	fmt.Printf("          NF  | %8d | %8d |  (FP, TN)\n", r.FalsePositives, r.TrueNegatives)
	fmt.Println("              +----------+----------+")

	fmt.Printf("\nDETECTION\n")
	fmt.Printf("   Precision:  %.4f  (of alerts, how many were actual fraud)\n", r.Precision())
	fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", r.Recall())
	fmt.Printf("   F1-Score:   %.4f\n", r.F1())
	fmt.Printf("   Accuracy:   %.4f\n", r.Accuracy())

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if scored > 0 {
		fmt.Printf("   Latency p50:      %v\n", r.Percentile(50).Round(time.Microsecond))
		fmt.Printf("   Latency p95:      %v\n", r.Percentile(95).Round(time.Microsecond))
		fmt.Printf("   Latency p99:      %v\n", r.Percentile(99).Round(time.Microsecond))
		fmt.Printf("   Throughput:       %.2f events/sec\n", float64(scored)/duration.Seconds())
	}
	fmt.Println()
}
