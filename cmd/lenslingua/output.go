package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"lenslingua/internal/app"
	"lenslingua/internal/history"
	"lenslingua/internal/model"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printState(w io.Writer, state app.State) {
	if state.Result == nil || len(state.Result.Items) == 0 {
		warnColor.Fprintln(w, "Nothing readable was found.")
		return
	}
	titleColor.Fprintf(w, "Translated to %s\n\n", state.TargetLanguage)
	printItems(w, state.Result.Items)
	if state.RecordID != "" {
		dimColor.Fprintf(w, "\nSaved as %s\n", state.RecordID)
	}
}

func printItems(w io.Writer, items []model.ExtractedItem) {
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s", i+1, color.New(color.Bold).Sprint(it.OriginalText))
		if it.TranslatedText != "" {
			fmt.Fprintf(w, " → %s", it.TranslatedText)
		}
		fmt.Fprintln(w)
		if it.Context != "" {
			dimColor.Fprintf(w, "   %s\n", it.Context)
		}
		if it.Allergens != "" {
			warnColor.Fprintf(w, "   allergens: %s\n", it.Allergens)
		}
	}
}

func printHistory(w io.Writer, records []history.Item) {
	if len(records) == 0 {
		fmt.Fprintln(w, "History is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tLANGUAGE\tITEMS\tCREATED\tFIRST ITEM")
	for _, rec := range records {
		first := ""
		if len(rec.Items) > 0 {
			first = rec.Items[0].OriginalText
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.ID, rec.Kind, rec.TargetLanguage, len(rec.Items),
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), first)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d\n", len(records))
}

func printRecord(w io.Writer, rec history.Item) {
	titleColor.Fprintf(w, "%s · %s · %s\n\n", rec.Kind, rec.TargetLanguage, rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	printItems(w, rec.Items)
}
