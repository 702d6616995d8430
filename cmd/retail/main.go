// Command retail управляет бэк-офисом магазина из командной строки.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/app"
	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/version"
)

// Коды выхода по видам ошибок.
const (
	exitOK                = 0
	exitInternal          = 1
	exitInvalidArgument   = 2
	exitNotFound          = 3
	exitInsufficientStock = 4
	exitInvalidState      = 5
	exitDuplicateKey      = 6
	exitPaymentNotReady   = 7
)

type handler func(ctx context.Context, rt *app.Runtime, args []string) (any, error)

var commands = map[string]map[string]handler{
	"product": {
		"add":    productAdd,
		"list":   productList,
		"show":   productShow,
		"update": productUpdate,
	},
	"customer": {
		"add":    customerAdd,
		"update": customerUpdate,
		"delete": customerDelete,
		"list":   customerList,
		"search": customerSearch,
		"show":   customerShow,
	},
	"order": {
		"create":   orderCreate,
		"show":     orderShow,
		"cancel":   orderCancel,
		"complete": orderComplete,
		"list":     orderList,
		"history":  orderHistory,
	},
	"payment": {
		"process": paymentProcess,
		"refund":  paymentRefund,
		"show":    paymentShow,
	},
	"report": {
		"top_products":        reportTopProducts,
		"revenue_last_month":  reportRevenueLastMonth,
		"orders_per_customer": reportOrdersPerCustomer,
		"frequent_customers":  reportFrequentCustomers,
	},
	"outbox": {
		"relay": outboxRelay,
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	cfg := app.LoadConfigFromEnv(log.WithField("component", "config"))

	global := flag.NewFlagSet("retail", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { usage(stderr, global) }
	driver := global.String("storage", string(cfg.StorageDriver), "storage driver: memory|sqlite|postgres (env RETAIL_STORAGE_DRIVER)")
	global.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file (env RETAIL_SQLITE_PATH)")
	global.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN (env RETAIL_POSTGRES_DSN)")
	global.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (env RETAIL_LOG_LEVEL)")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalidArgument
	}
	cfg.StorageDriver = app.StorageDriver(strings.ToLower(strings.TrimSpace(*driver)))

	app.SetupLogger(cfg)

	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return exitInvalidArgument
	}

	switch rest[0] {
	case "version":
		return render(stdout, stderr, version.Current(), nil)
	case "serve":
		err := app.Run(ctx, cfg)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fail(stderr, err)
		}
		return exitOK
	}

	h, err := lookup(rest)
	if err != nil {
		return fail(stderr, err)
	}

	rt, err := app.NewRuntime(ctx, cfg, log.WithField("component", "cli"))
	if err != nil {
		return fail(stderr, err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.WithError(err).Warn("failed to close storage")
		}
	}()

	result, err := h(ctx, rt, rest[2:])
	return render(stdout, stderr, result, err)
}

func lookup(args []string) (handler, error) {
	group, ok := commands[args[0]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", domain.ErrInvalidArgument, args[0])
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: %s requires a subcommand (%s)", domain.ErrInvalidArgument, args[0], subcommands(group))
	}
	h, ok := group[args[1]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s subcommand %q (%s)", domain.ErrInvalidArgument, args[0], args[1], subcommands(group))
	}
	return h, nil
}

func subcommands(group map[string]handler) string {
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func render(stdout, stderr io.Writer, result any, err error) int {
	if err != nil {
		return fail(stderr, err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fail(stderr, fmt.Errorf("encode result: %w", err))
	}
	return exitOK
}

func fail(stderr io.Writer, err error) int {
	// Бизнес-отказы пишутся в debug, остальное в error.
	if domain.IsBusinessError(err) {
		log.WithError(err).WithField("kind", domain.KindOf(err)).Debug("command rejected")
	} else {
		log.WithError(err).Error("command failed")
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNone:
		return exitOK
	case domain.KindInvalidArgument:
		return exitInvalidArgument
	case domain.KindNotFound:
		return exitNotFound
	case domain.KindInsufficientStock:
		return exitInsufficientStock
	case domain.KindInvalidState:
		return exitInvalidState
	case domain.KindDuplicateKey:
		return exitDuplicateKey
	case domain.KindPaymentNotReady:
		return exitPaymentNotReady
	default:
		return exitInternal
	}
}

func usage(w io.Writer, global *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "usage: retail [global flags] <command> <subcommand> [args]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	groups := make([]string, 0, len(commands))
	for name := range commands {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		_, _ = fmt.Fprintf(w, "  %-9s %s\n", name, subcommands(commands[name]))
	}
	_, _ = fmt.Fprintln(w, "  serve     run outbox worker and metrics/health endpoints")
	_, _ = fmt.Fprintln(w, "  version   print build information")
	_, _ = fmt.Fprintln(w, "\nglobal flags:")
	global.PrintDefaults()
}
