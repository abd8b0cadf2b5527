package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	tagsCmd.AddCommand(tagsRefreshCmd, tagsGetCmd, tagsFindCmd, tagsTopCmd)
	tagsFindCmd.Flags().IntP("limit", "n", 20, "maximum number of matches")
	rootCmd.AddCommand(tagsCmd)
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manages the local tag index built from the VNDB tag dump.",
}

var tagsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Downloads the tag dump if it is older than the configured livetime.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig(configPath)
		if err != nil {
			return err
		}
		cache := tags.New(cfg.Tags)
		downloaded, err := cache.Refresh(cmd.Context(), cfg.DataDir)
		if err != nil {
			return err
		}
		n, err := cache.Load(cfg.DataDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tags=%d downloaded=%t dir=%s\n", n, downloaded, cfg.DataDir)
		return nil
	},
}

var tagsGetCmd = &cobra.Command{
	Use:   "get <id|name>",
	Short: "Prints one tag by numeric id or exact name.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := loadTagCache(cmd)
		if err != nil {
			return err
		}
		key := strings.Join(args, " ")
		var (
			tag tags.Tag
			ok  bool
		)
		if id, convErr := strconv.Atoi(strings.TrimPrefix(key, "g")); convErr == nil {
			tag, ok = cache.ByID(id)
		} else {
			tag, ok = cache.ByName(key)
		}
		if !ok {
			return fmt.Errorf("tag %q not found", key)
		}
		renderTags([]tags.Tag{tag})
		return nil
	},
}

var tagsFindCmd = &cobra.Command{
	Use:   "find <prefix>",
	Short: "Lists tags whose name starts with prefix.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := loadTagCache(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		renderTags(cache.WithPrefix(strings.Join(args, " "), limit))
		return nil
	},
}

var tagsTopCmd = &cobra.Command{
	Use:   "top [n]",
	Short: "Lists the most used tags.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 20
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid count %q", args[0])
			}
			n = v
		}
		cache, err := loadTagCache(cmd)
		if err != nil {
			return err
		}
		renderTags(cache.Top(n))
		return nil
	},
}

func loadTagCache(cmd *cobra.Command) (*tags.Cache, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	return a.tagCache(cmd.Context())
}

func renderTags(list []tags.Tag) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Category", "VNs", "Aliases"})
	for _, tag := range list {
		t.AppendRow(table.Row{fmt.Sprintf("g%d", tag.ID), tag.Name, tag.Cat, tag.VNs, strings.Join(tag.Aliases, ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
