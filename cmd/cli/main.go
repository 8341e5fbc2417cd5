// Package main provides icon-cli, a command-line front end to the icon service.
//
// Run with: go run ./cmd/cli find https://example.com --min 64x64
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/app"
	"github.com/fleveque/icon-service/internal/config"
	"github.com/fleveque/icon-service/internal/icon"
	"github.com/fleveque/icon-service/internal/model"
	"github.com/fleveque/icon-service/internal/service"
	"github.com/fleveque/icon-service/internal/storage"
	"github.com/fleveque/icon-service/internal/strategy"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "icon-cli",
		Short:        "Find and save site icons",
		SilenceUsage: true,
	}

	root.AddCommand(findCmd(), historyCmd(), batchCmd(), storedCmd())
	return root
}

// setup loads config, creates a development logger and wires the app.
// Ctrl+C cancels the returned context. cleanup must always be called.
func setup(cmd *cobra.Command, adjust func(*config.Config)) (context.Context, *app.App, *zap.Logger, func(), error) {
	cfg, err := config.Load(os.Getenv("ICON_CONFIG_PATH"))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	cleanup := func() {
		stop()
		a.Close()
		_ = logger.Sync()
	}
	return ctx, a, logger, cleanup, nil
}

func findCmd() *cobra.Command {
	var (
		minSize string
		all     bool
		saveDir string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "find <url>",
		Short: "Discover the icons of a page and pick the best one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var want icon.Dimensions
			if minSize != "" {
				d, err := strategy.ParseSizes(minSize)
				if err != nil {
					return fmt.Errorf("--min: %w", err)
				}
				want = d
			}

			ctx, a, _, cleanup, err := setup(cmd, func(cfg *config.Config) {
				if saveDir != "" {
					cfg.Storage.IconDir = saveDir
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			best, res, err := a.IconService.Best(ctx, args[0], want.Width, want.Height)
			if err != nil {
				return err
			}

			icons := []*icon.Icon{best}
			if all {
				icons = largestFirst(res.Icons)
			}

			var saved string
			if saveDir != "" {
				if saved, err = a.IconService.Save(ctx, res.PageURL.Hostname(), best); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeFindJSON(out, res, best, icons, saved)
			}
			for _, ic := range icons {
				marker := " "
				if ic == best {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-9s %s\n", marker, sizeOf(ic), ic.URL)
			}
			if res.Source != model.SourceScraper {
				fmt.Fprintf(out, "(via %s)\n", res.Source)
			}
			if saved != "" {
				fmt.Fprintf(out, "saved %s\n", saved)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&minSize, "min", "", "Minimum size as WxH, e.g. 64x64")
	cmd.Flags().BoolVar(&all, "all", false, "List every icon found, largest first")
	cmd.Flags().StringVar(&saveDir, "save", "", "Save the chosen icon under this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

type iconOut struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MIMEType string `json:"mime_type,omitempty"`
}

func toOut(ic *icon.Icon) iconOut {
	return iconOut{URL: ic.URL.String(), Width: ic.Width(), Height: ic.Height(), MIMEType: ic.MIMEType}
}

func writeFindJSON(w io.Writer, res *service.LookupResult, best *icon.Icon, icons []*icon.Icon, saved string) error {
	out := struct {
		PageURL string    `json:"page_url"`
		Source  string    `json:"source"`
		Best    iconOut   `json:"best"`
		Icons   []iconOut `json:"icons"`
		Saved   string    `json:"saved,omitempty"`
	}{
		PageURL: res.PageURL.String(),
		Source:  res.Source,
		Best:    toOut(best),
		Saved:   saved,
	}
	for _, ic := range icons {
		out.Icons = append(out.Icons, toOut(ic))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func largestFirst(c *icon.Collection) []*icon.Icon {
	out := make([]*icon.Icon, 0, c.Len())
	for c.Len() > 0 {
		out = append(out, c.PopLargest())
	}
	return out
}

func sizeOf(ic *icon.Icon) string {
	d, ok := ic.Size()
	if !ok {
		return "?"
	}
	return d.String()
}

func historyCmd() *cobra.Command {
	var (
		limit   int
		host    string
		pageURL string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, _, cleanup, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			var lookups []model.Lookup
			switch {
			case pageURL != "":
				// Only the newest lookup of one page.
				latest, err := a.LookupRepo.GetLatest(ctx, pageURL)
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "no lookups for %s\n", pageURL)
					return nil
				}
				if err != nil {
					return fmt.Errorf("getting latest lookup: %w", err)
				}
				lookups = []model.Lookup{*latest}
			case host != "":
				lookups, err = a.LookupRepo.ListByHost(ctx, host, limit)
			default:
				lookups, err = a.LookupRepo.ListRecent(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("listing lookups: %w", err)
			}

			printLookups(cmd.OutOrStdout(), lookups)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of lookups to show")
	cmd.Flags().StringVar(&host, "host", "", "Only show lookups for this host")
	cmd.Flags().StringVar(&pageURL, "url", "", "Only show the latest lookup of this page")
	return cmd
}

// printLookups renders lookups as a table, newest first as given.
func printLookups(w io.Writer, lookups []model.Lookup) {
	tbl := table.New("Time", "Status", "Source", "Icons", "Best", "Page").WithWriter(w)
	for _, l := range lookups {
		best := "-"
		if l.HasIcon() {
			best = fmt.Sprintf("%dx%d", *l.BestWidth, *l.BestHeight)
		}
		tbl.AddRow(l.CreatedAt.Format("2006-01-02 15:04:05"), l.Status, l.Source, l.IconCount, best, l.PageURL)
	}
	tbl.Print()
}

func batchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Look up many pages, one URL per line (stdin when no file or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			pageURLs, err := readURLs(in)
			if err != nil {
				return fmt.Errorf("reading urls: %w", err)
			}

			ctx, a, logger, cleanup, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			stats, err := a.IconService.LookupAll(ctx, pageURLs, concurrency, func(pageURL string, res *service.LookupResult, err error) {
				switch {
				case err != nil:
					fmt.Fprintf(out, "FAIL   %s: %v\n", pageURL, err)
				case res.Icons.Len() == 0:
					fmt.Fprintf(out, "EMPTY  %s\n", pageURL)
				default:
					best := res.Icons.Largest()
					fmt.Fprintf(out, "FOUND  %s %s %s\n", pageURL, sizeOf(best), best.URL)
				}
			})

			fmt.Fprintf(out, "\n%d pages: %d found, %d empty, %d failed\n",
				stats.Total, stats.Found, stats.Empty, stats.Failed)
			if err != nil {
				logger.Warn("batch interrupted", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Pages looked up in parallel")
	return cmd
}

// readURLs returns the non-blank lines of r that are not # comments.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func storedCmd() *cobra.Command {
	var (
		del     bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "stored <host> [WxH]",
		Short: "List the icons saved for a host, or print one of them",
		Long: `Without a size, lists the icon files saved for host.
With a size, writes that saved icon to --out (stdout by default).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, _, cleanup, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			host := args[0]
			out := cmd.OutOrStdout()

			if len(args) == 2 {
				size, err := strategy.ParseSizes(args[1])
				if err != nil {
					return fmt.Errorf("size: %w", err)
				}
				data, _, err := readStored(a.FileSystem, host, size)
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err = out.Write(data)
					return err
				}
				return os.WriteFile(outPath, data, 0o644)
			}

			files, err := a.FileSystem.List(host)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(out, f)
			}

			if del && len(files) > 0 {
				if err := a.FileSystem.DeleteHost(host); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %d file(s) in %s\n", len(files), a.FileSystem.HostDir(host))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "Delete the host's saved icons")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the icon to this file instead of stdout")
	return cmd
}

// readStored returns the saved icon of host at size and its file extension.
// Files are named {W}x{H}.{ext}, so the extension is found by listing the host.
func readStored(fs *storage.FileSystem, host string, size icon.Dimensions) ([]byte, string, error) {
	files, err := fs.List(host)
	if err != nil {
		return nil, "", err
	}

	prefix := size.String() + "."
	for _, f := range files {
		if ext, ok := strings.CutPrefix(f, prefix); ok {
			data, err := fs.Read(host, size, ext)
			return data, ext, err
		}
	}
	return nil, "", fmt.Errorf("%w: %s has no %s icon", storage.ErrFileNotFound, host, size)
}
