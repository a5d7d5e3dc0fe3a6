package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/qfin/internal/client/portfolio"
)

// Data is a protected view showing the market data of the data service.
// "data refresh" asks the backend to rebuild its cache first.
func (a *App) Data(ctx context.Context, args []string) error {
	refresh := len(args) > 0 && args[0] == "refresh"
	return a.protected(ctx, func(ctx context.Context) error {
		raw, err := a.data.FetchStockData(ctx, refresh)
		if err != nil {
			a.printf("Error: %v\n", err)
			return err
		}
		a.printJSON(raw)
		return nil
	})
}

// Optimize is a protected view running a portfolio optimisation:
//
//	optimize <risk> <amount> <years> <assets> [classical|compare]
//
// A newer optimisation cancels one still in flight.
func (a *App) Optimize(ctx context.Context, args []string) error {
	p, mode, err := parseOptimizeArgs(args)
	if err != nil {
		a.printf("%v\n", err)
		return err
	}

	return a.protected(ctx, func(ctx context.Context) error {
		var raw json.RawMessage
		err := a.latest.Run(ctx, func(ctx context.Context) error {
			var err error
			switch mode {
			case "classical":
				raw, err = a.data.OptimizeClassical(ctx, p)
			case "compare":
				raw, err = a.data.Compare(ctx, p)
			default:
				raw, err = a.data.Optimize(ctx, p)
			}
			return err
		})
		if errors.Is(err, context.Canceled) {
			a.logger.Debug(ctx, "optimisation superseded")
			return err
		}
		if err != nil {
			a.printf("Error: %v\n", err)
			return err
		}
		a.printJSON(raw)
		return nil
	})
}

func parseOptimizeArgs(args []string) (portfolio.Params, string, error) {
	const usage = "Usage: optimize <risk 0..1> <amount> <years> <assets> [classical|compare]"
	if len(args) < 4 {
		return portfolio.Params{}, "", errors.New(usage)
	}

	risk, err := strconv.ParseFloat(args[0], 64)
	if err != nil || risk < 0 || risk > 1 {
		return portfolio.Params{}, "", fmt.Errorf("invalid risk %q. %s", args[0], usage)
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return portfolio.Params{}, "", errors.New("Please enter a valid investment amount")
	}
	years, err := strconv.Atoi(args[2])
	if err != nil || years <= 0 {
		return portfolio.Params{}, "", errors.New("Please enter a valid tenure in years")
	}
	assets, err := strconv.Atoi(args[3])
	if err != nil || assets <= 0 {
		return portfolio.Params{}, "", errors.New("Please enter a valid number of stocks")
	}

	mode := ""
	if len(args) > 4 {
		mode = args[4]
		if mode != "classical" && mode != "compare" {
			return portfolio.Params{}, "", errors.New(usage)
		}
	}
	return portfolio.Params{Risk: risk, Amount: amount, Time: years, NumAssets: assets}, mode, nil
}

// Info is a protected view with company details for the given tickers.
func (a *App) Info(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("Usage: info <TICKER...>\n")
		return errors.New("no tickers")
	}
	tickers := make([]string, len(args))
	for i, t := range args {
		tickers[i] = strings.ToUpper(t)
	}
	return a.protected(ctx, func(ctx context.Context) error {
		return a.showJSON(a.data.StockInfo(ctx, tickers))
	})
}

// Simulate is a protected view running a Monte Carlo simulation of an
// allocation:
//
//	simulate <amount> <years> <TICKER=weight...> [table]
//
// With "table" the yearly projection table is shown instead.
func (a *App) Simulate(ctx context.Context, args []string) error {
	alloc, table, err := parseAllocationArgs(args)
	if err != nil {
		a.printf("%v\n", err)
		return err
	}

	return a.protected(ctx, func(ctx context.Context) error {
		var raw json.RawMessage
		err := a.latest.Run(ctx, func(ctx context.Context) error {
			var err error
			if table {
				raw, err = a.data.TableData(ctx, alloc)
			} else {
				raw, err = a.data.Simulate(ctx, alloc)
			}
			return err
		})
		if errors.Is(err, context.Canceled) {
			a.logger.Debug(ctx, "simulation superseded")
			return err
		}
		return a.showJSON(raw, err)
	})
}

func parseAllocationArgs(args []string) (portfolio.Allocation, bool, error) {
	const usage = "Usage: simulate <amount> <years> <TICKER=weight...> [table]"
	table := len(args) > 0 && args[len(args)-1] == "table"
	if table {
		args = args[:len(args)-1]
	}
	if len(args) < 3 {
		return portfolio.Allocation{}, false, errors.New(usage)
	}

	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil || amount <= 0 {
		return portfolio.Allocation{}, false, errors.New("Please enter a valid investment amount")
	}
	years, err := strconv.Atoi(args[1])
	if err != nil || years <= 0 {
		return portfolio.Allocation{}, false, errors.New("Please enter a valid tenure in years")
	}

	weights := make(map[string]float64, len(args)-2)
	for _, kv := range args[2:] {
		ticker, w, ok := strings.Cut(kv, "=")
		weight, err := strconv.ParseFloat(w, 64)
		if !ok || ticker == "" || err != nil || weight < 0 {
			return portfolio.Allocation{}, false, fmt.Errorf("invalid weight %q. %s", kv, usage)
		}
		weights[strings.ToUpper(ticker)] = weight
	}
	return portfolio.Allocation{Weights: weights, Amount: amount, Time: years}, table, nil
}

func (a *App) showJSON(raw json.RawMessage, err error) error {
	if err != nil {
		a.printf("Error: %v\n", err)
		return err
	}
	a.printJSON(raw)
	return nil
}

func (a *App) printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		a.printf("%s\n", raw)
		return
	}
	a.printf("%s\n", buf.String())
}
