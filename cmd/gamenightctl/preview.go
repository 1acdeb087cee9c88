package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/humanbelnik/gamenight/internal/client"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/spf13/cobra"
)

func (c *cli) previewCmd() *cobra.Command {
	var (
		watch    bool
		fresh    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "preview <session-id>",
		Short: "Show a session's public summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				ctx, cancel := c.withTimeout(cmd)
				defer cancel()
				p, err := c.service.Preview(ctx, args[0], fresh)
				if err != nil {
					return err
				}
				printPreview(cmd.OutOrStdout(), p)
				return nil
			}
			return c.watch(cmd.Context(), cmd.OutOrStdout(), args[0], interval)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow changes until the session ends")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the preview cache")
	cmd.Flags().DurationVar(&interval, "poll-interval", client.DefaultPollInterval, "polling interval when push is unavailable")
	return cmd
}

// watch reprints the preview on every status change. A refresh that
// finishes after a newer one started is dropped.
func (c *cli) watch(ctx context.Context, out io.Writer, sessionID string, interval time.Duration) error {
	watcher := client.NewFallbackWatcher(
		client.NewPushWatcher(c.api),
		client.NewPollWatcher(c.service, interval),
	)
	changes, err := watcher.Watch(ctx, sessionID)
	if err != nil {
		return err
	}

	var (
		gen client.Generation
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	defer wg.Wait()

	for change := range changes {
		if change.Deleted {
			fmt.Fprintln(out, "session deleted")
			return nil
		}
		token := gen.Next()
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.service.Preview(ctx, sessionID, true)

			mu.Lock()
			defer mu.Unlock()
			if !gen.IsCurrent(token) || ctx.Err() != nil {
				return
			}
			if err != nil {
				fmt.Fprintf(out, "status %s (refresh failed: %v)\n", change.Status, err)
				return
			}
			printPreview(out, p)
		}()
		if change.Status == model.StatusExpired {
			return nil
		}
	}
	return nil
}

func printPreview(out io.Writer, p client.Preview) {
	title := p.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "%s  [%s]\n", title, p.Status)
	if p.HostName != "" {
		fmt.Fprintf(out, "host      %s\n", p.HostName)
	}
	fmt.Fprintf(out, "when      %s\n", p.ScheduledFor.Local().Format("Mon 2 Jan 15:04"))
	fmt.Fprintf(out, "seats     %d/%d taken\n", p.ClaimedCount, p.Capacity)
	for _, s := range p.NamedSlots {
		fmt.Fprintf(out, "  open for %s (%s)\n", s.DisplayName, s.ParticipantID)
	}
	if p.SelectedGame != nil {
		fmt.Fprintf(out, "selected  %s\n", p.SelectedGame.Name)
	}
	if p.Result != nil {
		fmt.Fprintf(out, "played    %s\n", p.Result.Name)
	}
	if p.CallerRole != nil {
		ready := p.CallerReady != nil && *p.CallerReady
		fmt.Fprintf(out, "you       %s, ready=%t\n", *p.CallerRole, ready)
	}
}
