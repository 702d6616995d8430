// Command migrate применяет и откатывает миграции схемы PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "RETAIL_POSTGRES_DSN"

	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	direction := fs.String("direction", "up", "migration direction: up|down|status")
	steps := fs.Int("steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	dsn := fs.String("dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	dir := strings.ToLower(strings.TrimSpace(*direction))
	switch dir {
	case "up", "down", "status":
	default:
		_, _ = fmt.Fprintf(stderr, "unsupported direction: %s (use up|down|status)\n", *direction)
		return exitUsage
	}

	target := strings.TrimSpace(*dsn)
	if target == "" {
		target = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if target == "" {
		_, _ = fmt.Fprintf(stderr, "%s (or -dsn) is required\n", envPostgresDSN)
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, target)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open postgres store: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	label := "migration status"
	switch dir {
	case "up":
		if err := store.MigrateUp(ctx, *steps); err != nil {
			_, _ = fmt.Fprintf(stderr, "migrate up failed: %v\n", err)
			return exitFailure
		}
		label = "migrate up ok"
	case "down":
		if err := store.MigrateDown(ctx, *steps); err != nil {
			_, _ = fmt.Fprintf(stderr, "migrate down failed: %v\n", err)
			return exitFailure
		}
		label = "migrate down ok"
	}

	state, err := store.MigrationStatus(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "migration status failed: %v\n", err)
		return exitFailure
	}
	_, _ = fmt.Fprintln(stdout, formatState(label, state))
	return 0
}

func formatState(label string, state postgres.MigrationState) string {
	return fmt.Sprintf("%s: version=%d applied=%d pending=%d", label, state.Version, state.Applied, state.Pending)
}
