// Command ivcalc 提供期权定价与隐含波动率计算的命令行入口与 HTTP 服务。
//
//	ivcalc price -spot 100 -strike 100 -rate 0.05 -days 365 -vol 0.2 -type call
//	ivcalc iv -spot 100 -price 2.41 -strike 100 -rate 0.03 -days 30 -type call
//	ivcalc serve -config configs/ivcalc.toml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wyfcoding/ivcalc/logging"
	"github.com/wyfcoding/ivcalc/pricing"
)

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

const usage = `usage: ivcalc <command> [flags]

commands:
  price   evaluate the theoretical price and vega of one contract
  iv      solve implied volatility from a market price
  serve   run the HTTP pricing service
  version print the build version
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ivcalc:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}

	switch args[0] {
	case "price":
		return runPrice(ctx, args[1:], stdout, stderr)
	case "iv":
		return runImpliedVol(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "version":
		_, err := fmt.Fprintln(stdout, version)
		return err
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// cliService 单次计算使用的服务实例：无缓存、无指标，日志只输出警告以上级别到 stderr。
func cliService(stderr io.Writer) *pricing.Service {
	logger := logging.NewFromConfig(logging.Config{Service: "ivcalc", Module: "cli", Level: "warn", Output: stderr})
	return pricing.NewService(pricing.Options{Logger: logger})
}

func runPrice(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cmd pricing.PriceCommand
	fs.Float64Var(&cmd.Spot, "spot", 0, "underlying price")
	fs.Float64Var(&cmd.Strike, "strike", 0, "strike price")
	fs.Float64Var(&cmd.Rate, "rate", 0, "continuously compounded risk-free rate")
	fs.Float64Var(&cmd.DaysToExpiry, "days", 0, "calendar days to expiry")
	fs.Float64Var(&cmd.Volatility, "vol", 0, "annualized volatility")
	fs.StringVar(&cmd.Type, "type", "call", "call or put")
	fs.StringVar(&cmd.Style, "style", "equity", "equity or futures")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := cliService(stderr).Price(ctx, cmd)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func runImpliedVol(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("iv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cmd pricing.ImpliedVolCommand
	fs.Float64Var(&cmd.Spot, "spot", 0, "underlying price")
	fs.Float64Var(&cmd.MarketPrice, "price", 0, "observed option price")
	fs.Float64Var(&cmd.Strike, "strike", 0, "strike price")
	fs.Float64Var(&cmd.Rate, "rate", 0, "continuously compounded risk-free rate")
	fs.Float64Var(&cmd.DaysToExpiry, "days", 0, "calendar days to expiry")
	fs.Float64Var(&cmd.Epsilon, "epsilon", pricing.DefaultEpsilon, "convergence tolerance")
	fs.StringVar(&cmd.Type, "type", "call", "call or put")
	fs.StringVar(&cmd.Style, "style", "equity", "equity or futures")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := cliService(stderr).ImpliedVol(ctx, cmd)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
