package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/mcules/ransomguard/internal/history"
)

func TestKeyLifecycle(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, store, []string{"create", "ci"}, &out); err != nil {
		t.Fatal(err)
	}
	m := regexp.MustCompile(`id:  (\S+)\nkey: (rg_\S+)`).FindStringSubmatch(out.String())
	if m == nil {
		t.Fatalf("create output %q", out.String())
	}
	id := m[1]

	out.Reset()
	if err := run(ctx, store, []string{"list"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "never") {
		t.Fatalf("list output %q", out.String())
	}

	if err := run(ctx, store, []string{"revoke", id}, &out); err != nil {
		t.Fatal(err)
	}
	if err := run(ctx, store, []string{"revoke", id}, &out); err == nil {
		t.Fatal("second revoke succeeded")
	}
	if err := run(ctx, store, []string{"bogus"}, &out); err == nil {
		t.Fatal("unknown command accepted")
	}
}
