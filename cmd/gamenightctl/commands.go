package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/humanbelnik/gamenight/internal/client"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
	"github.com/spf13/cobra"
)

func (c *cli) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.v.GetDuration(timeoutKey))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) createCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create --file session.json",
		Short: "Create a session from a JSON description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if file == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			var req client.CreateSessionRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parsing %s: %w", file, err)
			}

			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			res, err := c.service.CreateSession(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s created, %d games uploaded\n", res.SessionID, res.GamesUploaded)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "session description, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) claimCmd() *cobra.Command {
	var name, slot string
	cmd := &cobra.Command{
		Use:   "claim <session-id>",
		Short: "Join a session by taking a seat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			res, err := c.service.Claim(ctx, args[0], name, slot)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seat %s\n", res.ParticipantID)
			if res.HasSharedPreferences {
				fmt.Fprintln(out, "the host left picks for this seat")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&slot, "slot", "", "named seat to take")
	return cmd
}

func (c *cli) readyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready <session-id>",
		Short: "Mark yourself ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			return c.service.SetReady(ctx, args[0])
		},
	}
}

func (c *cli) gamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games <session-id>",
		Short: "List the session's games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			games, err := c.service.Games(ctx, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPLAYERS\tMINUTES")
			for _, g := range games {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, g.Name,
					span(g.MinPlayers, g.MaxPlayers), span(g.MinPlayTimeMinutes, g.MaxPlayTimeMinutes))
			}
			return tw.Flush()
		},
	}
}

func span(lo, hi *int) string {
	switch {
	case lo == nil && hi == nil:
		return "-"
	case lo == nil:
		return "≤" + strconv.Itoa(*hi)
	case hi == nil:
		return strconv.Itoa(*lo) + "+"
	case *lo == *hi:
		return strconv.Itoa(*lo)
	default:
		return strconv.Itoa(*lo) + "-" + strconv.Itoa(*hi)
	}
}

func (c *cli) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <session-id>",
		Short: "Show who joined and who is done (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			members, err := c.service.Members(ctx, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tNAME\tROLE\tSEAT\tREADY\tSUBMITTED")
			for _, m := range members {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\n",
					m.UID, m.DisplayName, m.Role, m.ParticipantID, m.Ready, m.HasSubmitted)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <session-id> <uid>",
		Short: "Remove a guest (host only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			return c.service.RemoveGuest(ctx, args[0], args[1])
		},
	}
}

func (c *cli) submitCmd() *cobra.Command {
	var (
		top, dislike []string
		ranks        []string
		localName    string
		localID      string
	)
	cmd := &cobra.Command{
		Use:   "submit <session-id>",
		Short: "Submit your picks, replacing earlier ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			games, err := c.service.Games(ctx, args[0])
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(games))
			for _, g := range games {
				ids = append(ids, g.ID)
			}
			board := client.NewBoard(ids, nil)

			for _, r := range ranks {
				id, n, ok := strings.Cut(r, "=")
				rank, err := strconv.Atoi(n)
				if !ok || err != nil {
					return fmt.Errorf("rank %q: want game=N", r)
				}
				if _, err := board.Apply(id, validation.PreferenceUpdate{Rank: &rank}); err != nil {
					return err
				}
			}
			yes := true
			for _, id := range top {
				if _, err := board.Apply(id, validation.PreferenceUpdate{IsTopPick: &yes}); err != nil {
					return err
				}
			}
			for _, id := range dislike {
				if _, err := board.Apply(id, validation.PreferenceUpdate{IsDisliked: &yes}); err != nil {
					return err
				}
			}

			var local *model.LocalUser
			if localID != "" {
				local = &model.LocalUser{ID: localID, DisplayName: localName}
			}
			count, err := c.service.SubmitBoard(ctx, args[0], board, local)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d picks saved\n", count)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&top, "top", nil, "top-pick game ids")
	cmd.Flags().StringSliceVar(&dislike, "dislike", nil, "disliked game ids")
	cmd.Flags().StringSliceVar(&ranks, "rank", nil, "ranked games as game=N")
	cmd.Flags().StringVar(&localID, "local-id", "", "submit for a player sharing this device")
	cmd.Flags().StringVar(&localName, "local-name", "", "display name of the local player")
	return cmd
}

func (c *cli) picksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "picks <session-id>",
		Short: "Show ready participants' picks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			participants, err := c.service.ReadyPreferences(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range participants {
				fmt.Fprintf(out, "%s (%s)\n", p.DisplayName, p.Source)
				for _, e := range p.Preferences {
					fmt.Fprintf(out, "  %s\n", describePick(e))
				}
			}
			return nil
		},
	}
}

func describePick(e model.PreferenceEntry) string {
	switch {
	case e.IsDisliked:
		return e.GameID + " disliked"
	case e.IsTopPick:
		return e.GameID + " top pick"
	case e.Rank != nil:
		return fmt.Sprintf("%s #%d", e.GameID, *e.Rank)
	default:
		return e.GameID
	}
}

func (c *cli) selectCmd() *cobra.Command {
	var pick model.GamePick
	cmd := &cobra.Command{
		Use:   "select <session-id>",
		Short: "Announce the chosen game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			res, err := c.service.SetSelectedGame(ctx, args[0], pick)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&pick.GameID, "game-id", "", "game id")
	cmd.Flags().StringVar(&pick.Name, "name", "", "game name")
	_ = cmd.MarkFlagRequired("game-id")
	return cmd
}

func (c *cli) closeCmd() *cobra.Command {
	var pick model.GamePick
	cmd := &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close the session, optionally recording the game played (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result *model.GamePick
			if pick.GameID != "" {
				result = &pick
			}
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			res, err := c.service.Close(ctx, args[0], result)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&pick.GameID, "game-id", "", "game played")
	cmd.Flags().StringVar(&pick.Name, "name", "", "name of the game played")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete the session and everything in it (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			return c.service.DeleteSession(ctx, args[0])
		},
	}
}
