package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mcules/ransomguard/internal/auth"
	"github.com/mcules/ransomguard/internal/config"
	"github.com/mcules/ransomguard/internal/history"
)

const usage = `usage:
  keyctl create NAME   create a key and print it once
  keyctl list          list keys
  keyctl revoke ID     delete a key`

func main() {
	cfg := config.Load()
	if cfg.HistoryDBPath == "" {
		log.Fatalf("HISTORY_DB_PATH is empty; keys live in the history database")
	}
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	defer store.Close()

	if err := run(context.Background(), store, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, store *history.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", usage)
	}

	switch args[0] {
	case "create":
		if len(args) != 2 {
			return fmt.Errorf("%s", usage)
		}
		key, rec, err := auth.NewAuthenticator(store, true).GenerateKey(ctx, args[1])
		if err != nil {
			return fmt.Errorf("create key: %w", err)
		}
		fmt.Fprintf(out, "id:  %s\nkey: %s\n", rec.ID, key)
		return nil

	case "list":
		keys, err := store.ListAPIKeys(ctx)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED\tLAST USED")
		for _, k := range keys {
			last := "never"
			if k.LastUsedAt != nil {
				last = k.LastUsedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Name, k.CreatedAt.Format(time.RFC3339), last)
		}
		return tw.Flush()

	case "revoke":
		if len(args) != 2 {
			return fmt.Errorf("%s", usage)
		}
		if _, ok, err := store.GetAPIKey(ctx, args[1]); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no key with id %s", args[1])
		}
		return store.DeleteAPIKey(ctx, args[1])

	default:
		return fmt.Errorf("%s", usage)
	}
}
