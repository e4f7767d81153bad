package main

import (
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/recall/internal/app"
	"github.com/thebtf/recall/internal/config"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	app        *app.App
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "recall",
		Short:         "Spaced repetition over the notes in a markdown vault",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `recall tracks markdown documents, extracts review items from them and
schedules reviews with a configurable algorithm (Leitner, SM2 or Anki).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
			path := c.configPath
			if path == "" {
				path = config.SettingsPath()
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg, log.Logger)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "settings file (default $RECALL_CONFIG or <data dir>/settings.json)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.trackCmd(),
		c.untrackCmd(),
		c.refreshCmd(),
		c.renameCmd(),
		c.trackFolderCmd(),
		c.untrackFolderCmd(),
		c.listCmd(),
		c.buildCmd(),
		c.nextCmd(),
		c.reviewCmd(),
		c.statsCmd(),
		c.outcomesCmd(),
		c.resetCmd(),
		c.moveCmd(),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func (c *cli) trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <path>",
		Short: "Track a document and create its review items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Store.Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func (c *cli) untrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <path>",
		Short: "Stop tracking a document and remove its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := c.app.Store.Untrack(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "untracked %s (%d items removed)\n", args[0], removed)
			return nil
		},
	}
}

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <path>",
		Short: "Re-extract a tracked document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Store.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func (c *cli) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Record that a tracked document moved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Store.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func (c *cli) trackFolderCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "track-folder [folder]",
		Short: "Track every supported document in a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Store.TrackFolder(cmd.Context(), folderArg(args), recursive)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "include subfolders")
	return cmd
}

func (c *cli) untrackFolderCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "untrack-folder [folder]",
		Short: "Untrack every tracked document in a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Store.UntrackFolder(cmd.Context(), folderArg(args), recursive)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "include subfolders")
	return cmd
}

func folderArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range c.app.Store.TrackedPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func (c *cli) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build today's review queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.Store.BuildQueue(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next item to review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, ok := c.app.Store.Next()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to review")
				return nil
			}
			path, key, err := c.app.Store.PathOf(index)
			if err != nil {
				return err
			}
			content, err := c.app.Store.Content(cmd.Context(), index)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"item":     index,
				"path":     path,
				"key":      key,
				"question": content.Question,
				"answer":   content.Answer,
				"retry":    c.app.Store.IsInRetryQueue(index),
			})
		},
	}
}

func (c *cli) reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <item> <outcome>",
		Short: "Submit a review outcome for an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid item index %q: %w", args[0], err)
			}
			result, err := c.app.Store.Review(cmd.Context(), index, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), c.app.Store.Stats())
		},
	}
}

func (c *cli) outcomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outcomes",
		Short: "List the outcomes accepted by the active algorithm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, o := range c.app.Store.Outcomes() {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all review data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards all review data; pass --yes to confirm")
			}
			if err := c.app.Store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "review data reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func (c *cli) moveCmd() *cobra.Command {
	var target config.StorageConfig
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Copy review data into another storage backend",
		Long: `move writes the current review data into the given backend and closes
the old one. Update the storage section of the settings file afterwards so
later runs read from the new location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.MoveStorage(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "review data moved to %s storage\n", target.Backend)
			return nil
		},
	}
	cmd.Flags().StringVar(&target.Backend, "backend", config.BackendFile, "file, sqlite, postgres, redis or badger")
	cmd.Flags().StringVar(&target.Path, "path", "", "file or directory for embedded backends")
	cmd.Flags().StringVar(&target.DSN, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&target.Addr, "addr", "", "redis address")
	return cmd
}
