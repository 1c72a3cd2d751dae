// Command backup exports a user's budget data to a JSON file, or
// restores it from one.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/currency"
	"budget/internal/kvstore"
	"budget/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// fixedIdentity pins the store to one user regardless of session state.
type fixedIdentity struct {
	user core.User
}

func (f fixedIdentity) CurrentUser() (core.User, bool) {
	return f.user, true
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email of the user to back up")
	out := fs.String("out", "", "Write an export to this file")
	in := fs.String("in", "", "Restore from this export file")
	dbPath := fs.String("db", "./data/budget.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: backup -email <email> (-out <file> | -in <file>) [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}
	if (*out == "") == (*in == "") {
		return fmt.Errorf("exactly one of -out or -in is required")
	}

	if path := os.Getenv("SQLITE_DB_PATH"); path != "" && *dbPath == "./data/budget.db" {
		*dbPath = path
	}

	kv, err := kvstore.NewSQLite(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer kv.Close()

	user, err := auth.New(kv, auth.WithLatency(0)).UserByEmail(*email)
	if err != nil {
		return fmt.Errorf("failed to resolve user %s: %w", *email, err)
	}

	st := store.New(kv, fixedIdentity{user: user})

	if *out != "" {
		doc, err := st.ExportAll()
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if err := os.WriteFile(*out, data, 0600); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		code := st.Currency()
		stats := st.DashboardStats()
		fmt.Fprintf(stdout, "Exported data for %s to %s\n", user.Email, *out)
		fmt.Fprintf(stdout, "  income: %d  expenses: %d  goals: %d  settings: %d\n",
			len(doc.Income), len(doc.Expenses), len(doc.Savings), len(doc.Settings))
		fmt.Fprintf(stdout, "  saved %s of %s across goals\n",
			currency.Format(stats.TotalSavings, code), currency.Format(stats.TotalTarget, code))
		return nil
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}
	if err := st.ImportAll(data); err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	fmt.Fprintf(stdout, "Imported data for %s from %s\n", user.Email, *in)
	return nil
}
