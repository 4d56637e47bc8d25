// Command shardctl inspects the shard topology described by a shardroute
// configuration file.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shardroute/internal/config"
	logadapter "shardroute/internal/infra/log"
	"shardroute/internal/shard"
)

var exitFunc = os.Exit

type options struct {
	configPath string
	logLevel   string
	timeout    time.Duration
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if code := execute(os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		exitFunc(code)
	}
}

// execute runs the command line and reports a failure on errOut before
// returning a non-zero exit code.
func execute(args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		writer := zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339, NoColor: true}
		logadapter.NewZerologAdapterWithWriter(writer, zerolog.ErrorLevel).Error("shardctl", "error", err)
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "shardctl",
		Short:         "Inspect shardroute shard configuration",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: $HOME/.shardroute/config.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	shards := &cobra.Command{Use: "shards", Short: "Shard topology commands"}
	shards.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured shards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(errOut)
			if err != nil {
				return err
			}
			log.Debug("listing shards", "count", len(cfg.Shards)+1)
			printShard(cmd.OutOrStdout(), shard.DefaultShardName, cfg.Default)
			for _, name := range cfg.ShardNames() {
				printShard(cmd.OutOrStdout(), name, cfg.Shards[name])
			}
			return nil
		},
	})
	ping := &cobra.Command{
		Use:   "ping",
		Short: "Open every configured shard and check that it answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(errOut)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			reg, err := config.OpenRegistry(ctx, cfg)
			if err != nil {
				log.Error("open shards", "error", err)
				return err
			}
			defer func() {
				if err := reg.Close(); err != nil {
					log.Warn("close shards", "error", err)
				}
			}()
			results := reg.Ping(ctx)
			failed := 0
			for _, name := range append([]string{shard.DefaultShardName}, reg.Names()...) {
				if err := results[name]; err != nil {
					failed++
					log.Error("shard unreachable", "shard", name, "error", err)
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAIL\t%v\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d shard(s) unreachable", failed)
			}
			log.Info("all shards reachable", "count", len(results))
			return nil
		},
	}
	ping.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "time allowed for opening and pinging all shards")
	shards.AddCommand(ping)
	root.AddCommand(shards)
	return root
}

func (o *options) load(errOut io.Writer) (config.Config, *logadapter.ZerologAdapter, error) {
	path := o.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	level := o.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	writer := zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339, NoColor: true}
	return cfg, logadapter.NewZerologAdapterWithWriter(writer, logadapter.ParseLevel(level)), nil
}

func printShard(w io.Writer, name string, sc config.ShardConfig) {
	driver := sc.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", name, driver, redact(sc.DSN))
}

var passwordField = regexp.MustCompile(`(?i)\b(password\s*=\s*)('(?:[^'\\]|\\.)*'|[^\s&]+)`)

// redact hides passwords in URL-style and key/value DSNs.
func redact(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return passwordField.ReplaceAllString(dsn, "${1}xxxxx")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return passwordField.ReplaceAllString(dsn, "${1}xxxxx")
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	if q := u.Query(); q.Has("password") {
		q.Set("password", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
