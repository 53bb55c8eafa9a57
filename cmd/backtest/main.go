// cmd/backtest replays historical candles through the strategy coordinator
// to measure how the configured strategies would have traded.
//
// Usage:
//
//	go run ./cmd/backtest --symbols BTCUSDT,ETHUSDT --start 2025-01-01 --end 2025-02-01
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"signal-systemv1/config"
	"signal-systemv1/internal/backtest"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/store/sqlite"
)

const dateLayout = "2006-01-02"

var flags struct {
	symbols    []string
	strategies []string
	timeframe  string
	start      string
	end        string
	balance    float64
	leverage   float64
	dbPath     string
	configPath string
	synthetic  bool
	save       bool
	logLevel   string
}

func main() {
	cmd := &cobra.Command{
		Use:           "backtest",
		Short:         "Replay historical candles through the signal strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().StringSliceVar(&flags.symbols, "symbols", []string{"BTCUSDT", "ETHUSDT"}, "symbols to replay")
	cmd.Flags().StringSliceVar(&flags.strategies, "strategies", nil, "strategy subset (default: config active_strategies)")
	cmd.Flags().StringVar(&flags.timeframe, "timeframe", model.TF15m, "candle timeframe")
	cmd.Flags().StringVar(&flags.start, "start", "", "start date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&flags.end, "end", "", "end date (YYYY-MM-DD, required)")
	cmd.Flags().Float64Var(&flags.balance, "balance", 1000, "initial balance in USD")
	cmd.Flags().Float64Var(&flags.leverage, "leverage", 1, "position leverage")
	cmd.Flags().StringVar(&flags.dbPath, "db", "data/market.db", "SQLite database path")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "trading config YAML (default: built-in)")
	cmd.Flags().BoolVar(&flags.synthetic, "synthetic", false, "force synthetic candles instead of the database")
	cmd.Flags().BoolVar(&flags.save, "save", false, "store the result in the database")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log level")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "backtest:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger.Init("backtest", logger.ParseLevel(flags.logLevel))

	tcfg, err := config.LoadTrading(flags.configPath)
	if err != nil {
		return err
	}

	start, err := time.ParseInLocation(dateLayout, flags.start, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, flags.end, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if len(flags.symbols) == 0 {
		return fmt.Errorf("at least one symbol required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, cleanup, err := candleProvider(ctx, start, end)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := backtest.NewEngine(tcfg, provider, nil)
	res, err := engine.Run(ctx, backtest.Options{
		Strategies:     flags.strategies,
		Symbols:        flags.symbols,
		Timeframe:      flags.timeframe,
		StartDate:      start,
		EndDate:        end,
		InitialBalance: flags.balance,
		Leverage:       flags.leverage,
	})
	if err != nil {
		return err
	}

	printResult(res)

	if flags.save {
		writer, err := sqlite.NewWriter(flags.dbPath)
		if err != nil {
			return fmt.Errorf("open database for save: %w", err)
		}
		defer writer.Close()
		if err := writer.SaveBacktest(ctx, res); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		fmt.Printf("\nresult saved to %s\n", flags.dbPath)
	}
	return nil
}

// candleProvider prefers stored candles and falls back to the synthetic
// feed when the database is missing or has no rows for the first symbol.
func candleProvider(ctx context.Context, start, end time.Time) (model.CandleProvider, func(), error) {
	noop := func() {}
	if flags.synthetic {
		return &backtest.SyntheticProvider{}, noop, nil
	}

	reader, err := sqlite.NewReader(flags.dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database unavailable (%v), using synthetic candles\n", err)
		return &backtest.SyntheticProvider{}, noop, nil
	}

	probe, err := reader.GetCandles(ctx, flags.symbols[0], flags.timeframe, start, end)
	if err != nil || len(probe) == 0 {
		reader.Close()
		fmt.Fprintln(os.Stderr, "no stored candles for the requested range, using synthetic candles")
		return &backtest.SyntheticProvider{}, noop, nil
	}
	return reader, func() { reader.Close() }, nil
}

func printResult(res *backtest.Result) {
	fmt.Printf("\nBacktest %s -> %s", res.StartDate.Format(dateLayout), res.EndDate.Format(dateLayout))
	if res.Partial {
		fmt.Print("  (interrupted, partial result)")
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", 52))
	fmt.Printf("%-22s %d\n", "Total trades", res.TotalTrades)
	fmt.Printf("%-22s %d / %d\n", "Wins / losses", res.WinningTrades, res.LosingTrades)
	fmt.Printf("%-22s %+.2f USD\n", "Total profit", res.TotalProfit)
	fmt.Printf("%-22s %.2f -> %.2f USD\n", "Balance", res.InitialBalance, res.FinalBalance)
	fmt.Printf("%-22s %.2f%%\n", "Max drawdown", res.MaxDrawdown)
	fmt.Printf("%-22s %.3f\n", "Sharpe ratio", res.SharpeRatio)

	fmt.Println("\nPer symbol")
	for _, s := range res.PerSymbol {
		if s.Err != "" {
			fmt.Printf("  %-10s error: %s\n", s.Symbol, s.Err)
			continue
		}
		fmt.Printf("  %-10s %3d trades  final %.2f USD\n", s.Symbol, len(s.Trades), s.FinalBalance)
	}

	if len(res.Daily) > 0 {
		fmt.Println("\nDaily breakdown")
		fmt.Printf("  %-12s %7s %6s %10s %9s\n", "date", "trades", "wins", "pnl", "win rate")
		for _, d := range res.Daily {
			fmt.Printf("  %-12s %7d %6d %+10.2f %8.1f%%\n",
				d.Date, d.Trades, d.Wins, d.PnL, d.WinRate)
		}
	}
}
