package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/relbus"
	"github.com/UkralStul/testbook/internal/view"
)

func (a *app) watchCmd() *cobra.Command {
	var following bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a feed open and print every reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), following)
		},
	}
	cmd.Flags().BoolVar(&following, "following", false, "watch the following feed")
	return cmd
}

// watch держит ленту смонтированной до отмены ctx. Лента перезагружается по
// событиям шины, а cron периодически сверяет отметку времени, как при
// возврате фокуса на вкладку.
func (a *app) watch(ctx context.Context, following bool) error {
	f := view.NewFeed(a.deps(), feedType(following))
	defer f.Close()

	var mu sync.Mutex
	f.OnLoad(func(posts []domain.Post) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(a.out, "--- %s feed loaded at %s: %d posts\n", f.Type(), time.Now().Format(time.TimeOnly), len(posts))
		printPosts(a.out, posts)
	})
	if err := f.Mount(ctx); err != nil {
		return err
	}

	c := cron.New()
	schedule := "@every " + a.cfg.RefreshInterval.String()
	if _, err := c.AddFunc(schedule, func() {
		if err := f.Focus(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("feed refresh check failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule refresh check %q: %w", schedule, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	if a.cfg.RelayEnabled && a.bus != nil {
		wsURL, err := a.cfg.RelationshipsURL()
		if err != nil {
			return fmt.Errorf("relationships url: %w", err)
		}
		relay := relbus.NewRelay(wsURL, a.cfg.Token, a.cfg.Token, a.bus, a.logger)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(ctx); err != nil {
				a.logger.Warn("relationship relay stopped", zap.Error(err))
			}
		}()
		defer wg.Wait()
	}

	a.logger.Info("watching feed", zap.String("feed", string(f.Type())), zap.String("refresh", schedule))
	<-ctx.Done()
	return nil
}
