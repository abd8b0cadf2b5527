package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/vndbctl/internal/enrich"
	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/danmuck/vndbctl/internal/vndb"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd, vnCmd, searchCmd)
	vnCmd.Flags().Bool("genres", true, "resolve tag names through the local tag index")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connects and authenticates against the API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.login(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "authenticated to %s (tls=%t)\n",
			a.cfg.Transport.WithDefaults().Address(), a.cfg.Transport.UseTLS)
		return nil
	},
}

var vnCmd = &cobra.Command{
	Use:   "vn <id>",
	Short: "Prints one visual novel by id (v17, 17 or a vndb.org url).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := vndb.ParseVNID(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", vndb.ErrInvalidVNID, args[0])
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		client, err := a.client(cmd.Context())
		if err != nil {
			return err
		}
		res, err := client.GetVNByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return fmt.Errorf("v%d not found", id)
		}

		var cache *tags.Cache
		if withGenres, _ := cmd.Flags().GetBool("genres"); withGenres {
			if cache, err = a.tagCache(cmd.Context()); err != nil {
				return err
			}
		}
		renderVN(res.Items[0], cache, a.cfg.MaxTags)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Searches visual novels by title text.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		client, err := a.client(cmd.Context())
		if err != nil {
			return err
		}
		res, err := client.SearchVN(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Title", "Released", "Score"})
		for _, vn := range res.Items {
			score := "-"
			if s, ok := enrich.CommunityScore(vn); ok {
				score = fmt.Sprint(s)
			}
			t.AppendRow(table.Row{fmt.Sprintf("v%d", vn.ID), vn.Title, vn.Released, score})
		}
		if res.More {
			t.AppendFooter(table.Row{"", "more results available", "", ""})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func renderVN(vn vndb.VisualNovel, cache *tags.Cache, maxTags int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRow(table.Row{"ID", fmt.Sprintf("v%d", vn.ID)})
	t.AppendRow(table.Row{"Title", vn.Title})
	if vn.Original != "" {
		t.AppendRow(table.Row{"Original", vn.Original})
	}
	if date, ok := enrich.ReleaseDate(vn); ok {
		t.AppendRow(table.Row{"Released", date.Format("2006-01-02")})
	}
	if score, ok := enrich.CommunityScore(vn); ok {
		t.AppendRow(table.Row{"Score", score})
	}
	if cache != nil {
		if genres := enrich.Genres(vn, cache, maxTags); len(genres) > 0 {
			t.AppendRow(table.Row{"Genres", strings.Join(genres, ", ")})
		}
	}
	for _, link := range enrich.Links(vn) {
		t.AppendRow(table.Row{link.Name, link.URL})
	}
	if vn.Description != "" {
		t.AppendRow(table.Row{"Description", enrich.DescriptionHTML(vn.Description)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
