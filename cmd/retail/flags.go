package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/order"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parse разбирает флаги вперемешку с позиционными аргументами и возвращает позиционные.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, fs.Name(), err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// parseWithID разбирает флаги и ровно один позиционный аргумент-идентификатор.
func parseWithID(fs *flag.FlagSet, args []string, what string) (int64, error) {
	positional, err := parse(fs, args)
	if err != nil {
		return 0, err
	}
	if len(positional) != 1 {
		return 0, fmt.Errorf("%w: %s expects exactly one <%s>", domain.ErrInvalidArgument, fs.Name(), what)
	}
	return parseID(positional[0], what)
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", domain.ErrInvalidArgument, what, raw)
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q is not a number", domain.ErrInvalidArgument, raw)
	}
	return price, nil
}

// setFlags возвращает имена флагов, явно переданных в командной строке.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// itemList реализует повторяемый флаг --item pid:qty.
type itemList []order.ItemRequest

func (l *itemList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, len(*l))
	for _, item := range *l {
		parts = append(parts, fmt.Sprintf("%d:%d", item.ProductID, item.Quantity))
	}
	return strings.Join(parts, ",")
}

func (l *itemList) Set(raw string) error {
	pid, qty, ok := strings.Cut(raw, ":")
	if !ok {
		return fmt.Errorf("item %q must look like <product_id>:<quantity>", raw)
	}
	productID, err := strconv.ParseInt(strings.TrimSpace(pid), 10, 64)
	if err != nil {
		return fmt.Errorf("item %q: bad product id", raw)
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil {
		return fmt.Errorf("item %q: bad quantity", raw)
	}
	*l = append(*l, order.ItemRequest{ProductID: productID, Quantity: quantity})
	return nil
}
