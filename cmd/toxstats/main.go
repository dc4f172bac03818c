package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/JFreegman/toxstats/internal/core/config"
	"github.com/JFreegman/toxstats/internal/geo"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const usage = `Usage: toxstats <command> [flags]

Commands:
  ingest [--cleanup] [--dry-run] <snapshot-root>   process new snapshots once
  serve                                             run the query API and the ingestion schedule
  migrate                                           apply database migrations

Run "toxstats <command> --help" for the flags of a command.
`

// errUsage means the flags were wrong. The flag set has already printed why.
var errUsage = errors.New("usage")

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "ingest":
		err = runIngest(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "migrate":
		err = runMigrate(ctx, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	envPath    string
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&cf.envPath, "env-file", ".env", "path to a dotenv file (ignored when missing)")
	return fs, cf
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

// loadConfig loads configuration and installs the configured log level.
func loadConfig(cf *commonFlags) (*corecfg.Config, error) {
	cfg, err := corecfg.Load(cf.configPath, cf.envPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	return cfg, nil
}

func buildResolver(cfg corecfg.GeoConfig) (geo.Resolver, error) {
	var r geo.Resolver = geo.UnknownResolver{}
	if cfg.TablePath != "" {
		static, err := geo.LoadStaticResolver(afero.NewOsFs(), cfg.TablePath)
		if err != nil {
			return nil, fmt.Errorf("load country table: %w", err)
		}
		r = static
	} else {
		slog.Warn("[Geo] No country table configured, every identifier resolves as unknown")
	}
	if cfg.CacheSize > 0 {
		r = geo.NewCachedResolver(r, cfg.CacheSize, cfg.CacheTTL)
	}
	return r, nil
}
