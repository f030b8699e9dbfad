package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muonblog/mycoserve/internal/config"
	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
	"github.com/muonblog/mycoserve/internal/taxonomy"
	"github.com/muonblog/mycoserve/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	taxonomyFormat     string
	taxonomyCategories bool
	taxonomyWatch      bool
	taxonomySource     string
)

var taxonomyCmd = &cobra.Command{
	Use:     "taxonomy",
	Aliases: []string{"t"},
	Short:   "Parse the encyclopedia source and print it",
	Long: `Parse shroom_info.yaml exactly as the server does and print the result.

Use it to check an edited source before the server picks it up: every
category, genus and species the server will render appears in the output.

Examples:
  mycoserve taxonomy                         # YAML tree
  mycoserve taxonomy --format summary        # Counts per category
  mycoserve taxonomy --categories -f json    # Category labels and titles only
  mycoserve taxonomy --watch                 # Re-print on every save`,
	RunE: runTaxonomy,
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)

	EnumVarP(taxonomyCmd.Flags(), &taxonomyFormat, "format", "f", "yaml",
		[]string{"yaml", "json", "summary"}, "Output format")
	taxonomyCmd.Flags().BoolVar(&taxonomyCategories, "categories", false, "Parse categories only")
	taxonomyCmd.Flags().BoolVar(&taxonomyWatch, "watch", false, "Re-print whenever the source changes")
	taxonomyCmd.Flags().StringVar(&taxonomySource, "source", "", "Source file (default from paths.source)")
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	source := taxonomySource
	if source == "" {
		cfg, err := config.Load()
		if err != nil {
			return errors.WrapConfig(err, "failed to load configuration")
		}
		source = cfg.Paths.Source
	}

	out := cmd.OutOrStdout()
	if err := printTaxonomy(out, source, taxonomyFormat, taxonomyCategories); err != nil {
		return err
	}
	if !taxonomyWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Output: cmd.ErrOrStderr(),
	})
	return watchTaxonomy(ctx, source, logger, func() error {
		fmt.Fprintln(out, "---")
		return printTaxonomy(out, source, taxonomyFormat, taxonomyCategories)
	})
}

// watchTaxonomy calls reprint after every settled change to source until
// ctx is done. A failing reprint is logged and watching continues.
func watchTaxonomy(ctx context.Context, source string, logger logging.Logger, reprint func() error) error {
	fw, err := watcher.NewFileWatcher(300*time.Millisecond, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, ev := range events {
			logger.Debug(ctx, "Source changed", "path", ev.Path, "event", ev.Type.String())
		}
		return reprint()
	})
	if err := fw.WatchFile(source); err != nil {
		return errors.WrapIO(err, errors.ErrCodeTaxonomyRead, "cannot watch taxonomy source").WithPath(source)
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Watching taxonomy source", "path", source)
	<-ctx.Done()
	return nil
}

// printTaxonomy loads source and writes it to w in format.
func printTaxonomy(w io.Writer, source, format string, categoriesOnly bool) error {
	tax, err := taxonomy.LoadFile(source, categoriesOnly)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tax)
	case "summary":
		return writeSummary(w, tax)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tax); err != nil {
			return err
		}
		return enc.Close()
	}
}

func writeSummary(w io.Writer, tax *taxonomy.Taxonomy) error {
	categories, genera, species := tax.Counts()
	if _, err := fmt.Fprintf(w, "%d categories, %d genera, %d species\n", categories, genera, species); err != nil {
		return err
	}
	for _, c := range tax.Categories {
		n := 0
		for _, g := range c.Genera {
			n += len(g.Species)
		}
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		if _, err := fmt.Fprintf(w, "  /%-20s %-30s %3d genera %4d species\n", c.Label, title, len(c.Genera), n); err != nil {
			return err
		}
	}
	return nil
}
