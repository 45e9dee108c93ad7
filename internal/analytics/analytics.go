package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"lenslingua/internal/storage"
)

// DailyStats aggregates one day of audit events.
type DailyStats struct {
	Date             string               `json:"date"`
	TotalExtractions int                  `json:"total_extractions"`
	Successful       int                  `json:"successful"`
	Empty            int                  `json:"empty"`
	Failed           int                  `json:"failed"`
	UniqueUsers      int                  `json:"unique_users"`
	ItemsExtracted   int                  `json:"items_extracted"`
	AvgLatencyMs     int64                `json:"avg_latency_ms"`
	ByKind           map[string]int       `json:"by_kind"`
	ByLanguage       map[string]int       `json:"by_language"`
	ByErrorKind      map[string]int       `json:"by_error_kind"`
	UserStats        map[string]UserStats `json:"user_stats"`
}

type UserStats struct {
	Email       string `json:"email"`
	Extractions int    `json:"extractions"`
	Items       int    `json:"items"`
	Failures    int    `json:"failures"`
}

// AnalyzeDailyLogs counts the events that fall on targetDate's calendar day.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:        startOfDay.Format("2006-01-02"),
		ByKind:      make(map[string]int),
		ByLanguage:  make(map[string]int),
		ByErrorKind: make(map[string]int),
		UserStats:   make(map[string]UserStats),
	}

	var latencyTotal int64
	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		// events without an owner are not user activity
		if event.Email == "" {
			continue
		}

		stats.TotalExtractions++
		latencyTotal += event.LatencyMs
		stats.ByKind[event.Kind]++
		if event.TargetLanguage != "" {
			stats.ByLanguage[event.TargetLanguage]++
		}

		userStat := stats.UserStats[event.Email]
		userStat.Email = event.Email
		userStat.Extractions++

		switch event.Outcome {
		case storage.OutcomeSuccess:
			stats.Successful++
			stats.ItemsExtracted += event.ItemCount
			userStat.Items += event.ItemCount
		case storage.OutcomeEmpty:
			stats.Empty++
		default:
			stats.Failed++
			userStat.Failures++
			if event.ErrorKind != "" {
				stats.ByErrorKind[event.ErrorKind]++
			}
		}
		stats.UserStats[event.Email] = userStat
	}

	stats.UniqueUsers = len(stats.UserStats)
	if stats.TotalExtractions > 0 {
		stats.AvgLatencyMs = latencyTotal / int64(stats.TotalExtractions)
	}
	return stats
}

// GenerateReportSummary renders the stats as a short plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "LensLingua usage for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Extractions: %d (ok %d, empty %d, failed %d)\n", ds.TotalExtractions, ds.Successful, ds.Empty, ds.Failed)
	fmt.Fprintf(&b, "Unique users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "Items translated: %d\n", ds.ItemsExtracted)
	if ds.TotalExtractions > 0 {
		fmt.Fprintf(&b, "Average latency: %d ms\n", ds.AvgLatencyMs)
	}

	writeCounts(&b, "By kind", ds.ByKind)
	writeCounts(&b, "By target language", ds.ByLanguage)
	writeCounts(&b, "Failures", ds.ByErrorKind)

	if len(ds.UserStats) > 0 {
		emails := make([]string, 0, len(ds.UserStats))
		for email := range ds.UserStats {
			emails = append(emails, email)
		}
		sort.Strings(emails)
		fmt.Fprintf(&b, "\nUsers (%d):\n", len(emails))
		for _, email := range emails {
			u := ds.UserStats[email]
			fmt.Fprintf(&b, "- %s: %d extractions, %d items", email, u.Extractions, u.Items)
			if u.Failures > 0 {
				fmt.Fprintf(&b, ", %d failed", u.Failures)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[k])
	}
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
