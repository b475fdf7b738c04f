// Command testbook - консольный клиент Testbook.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/config"
	"github.com/UkralStul/testbook/internal/logging"
	"github.com/UkralStul/testbook/internal/relbus"
	"github.com/UkralStul/testbook/internal/view"
)

// app - собранные зависимости клиента.
type app struct {
	configPath string
	as         string

	cfg     config.ClientConfig
	client  *api.Client
	bus     *relbus.PubSubBus
	logger  *zap.Logger
	out     io.Writer
	closers []func() error
}

func (a *app) deps() view.Deps {
	d := view.Deps{API: a.client, Logger: a.logger}
	if a.bus != nil {
		d.Bus = a.bus
	}
	return d
}

func main() {
	os.Exit(realMain())
}

// realMain возвращает код выхода, чтобы отложенные Close успели выполниться.
func realMain() int {
	a := &app{out: os.Stdout}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		return 1
	}
	return 0
}

// execute разбирает аргументы и выполняет команду.
func (a *app) execute(ctx context.Context, args []string) error {
	if args == nil {
		// Без аргументов cobra читает os.Args.
		args = []string{}
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "testbook",
		Short: "A console client for Testbook.",
		Long: `A console client for Testbook.

Read feeds, react, repost, comment and manage follows and blocks.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	if a.out != nil {
		root.SetOut(a.out)
	}
	root.PersistentFlags().SortFlags = false
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&a.as, "as", "", "act as this user (overrides the configured token)")

	root.AddCommand(
		a.feedCmd(),
		a.watchCmd(),
		a.showCmd(),
		a.postCmd(),
		a.reactCmd(),
		a.repostCmd(),
		a.editCmd(),
		a.commentCmd(),
		a.deleteCmd(),
		a.profileCmd(),
		a.followCmd(),
		a.blockCmd(),
		a.followersCmd(),
		a.followingCmd(),
	)
	return root
}

// setup собирает конфигурацию, логгер, шину и API-клиент. Уже собранный
// клиент не пересоздается.
func (a *app) setup() error {
	if a.client != nil {
		return nil
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.as != "" {
		cfg.Client.Token = a.as
	}
	if err := cfg.Client.Validate(); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}

	logger, err := logging.New(cfg.Client.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func() error { _ = logger.Sync(); return nil })

	statePath, err := cfg.Client.StatePath()
	if err != nil {
		return fmt.Errorf("failed to resolve state path: %w", err)
	}
	state, err := relbus.NewSQLiteStore(statePath)
	if err != nil {
		return fmt.Errorf("failed to open client state %s: %w", statePath, err)
	}
	a.closers = append(a.closers, state.Close)

	a.bus = relbus.New(state, logger)
	a.closers = append(a.closers, a.bus.Close)

	a.cfg = cfg.Client
	a.client = api.New(cfg.Client.APIURL, cfg.Client.Token,
		api.WithTimeout(cfg.Client.HTTPTimeout.Duration),
		api.WithLogger(logger))
	return nil
}

// close освобождает ресурсы в обратном порядке.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
}
