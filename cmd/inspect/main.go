package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Arpita31/alfred/internal/audit"
	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/storage"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to alfred.db")
	last := flag.Int("last", 20, "show N most recent entries")
	user := flag.String("user", "", "filter to one user")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/alfred.db [--last N] [--user id] [--json]")
		os.Exit(2)
	}

	db, err := storage.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	interventions, err := intervention.NewStore(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init intervention store: %v\n", err)
		os.Exit(1)
	}
	decisionLog, err := audit.NewLog(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init decision log: %v\n", err)
		os.Exit(1)
	}

	if err := printInterventions(interventions, *user, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := printDecisions(decisionLog, *user, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region interventions

func printInterventions(store *intervention.Store, userID string, last int, jsonOut bool) error {
	var records []intervention.Record
	var err error
	if userID != "" {
		records, err = store.ListByUser(userID, last)
	} else {
		records, err = store.ListRecent(last)
	}
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(records)
	}

	fmt.Printf("%-36s  %-36s  %-12s  %-10s  %5s  %-19s  %s\n",
		"ID", "User", "Type", "Status", "Conf", "Created", "Title")
	for _, rec := range records {
		fmt.Printf("%-36s  %-36s  %-12s  %-10s  %5.2f  %-19s  %s\n",
			rec.ID, rec.UserID, rec.Type, rec.Status, rec.ConfidenceScore,
			rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Title)
	}
	fmt.Println()
	return nil
}

// #endregion interventions

// #region decisions

func printDecisions(log *audit.Log, userFilter string, last int, jsonOut bool) error {
	entries, err := log.Recent(last)
	if err != nil {
		return err
	}
	if userFilter != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.UserID == userFilter {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%-36s  %-12s  %-18s  %-20s  %5s  %s\n",
		"User", "Signal", "Decision", "Reason", "Conf", "Time")
	for _, e := range entries {
		fmt.Printf("%-36s  %-12s  %-18s  %-20s  %5.2f  %s\n",
			e.UserID, e.SignalType, e.Decision, e.Reason, e.Confidence,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion decisions
