// Package main is the entry point for the notion-to-obsidian CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sleroq/notion-to-obsidian/internal/app/importer"
	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "notion-to-obsidian",
	Short: "Convert a Notion HTML export into an Obsidian vault",
	Long: `notion-to-obsidian reads a Notion "HTML" export, either the unpacked
directory or the .zip archive, and writes an Obsidian vault: one Markdown note
per page with YAML front matter, wikilinks between pages and attachments
copied next to the notes that use them.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runImport,
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := notion.DefaultConfig()
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./notion-to-obsidian.yaml or ~/.config/notion-to-obsidian/notion-to-obsidian.yaml)")

	f := rootCmd.Flags()
	f.StringP("input", "i", "", "Notion HTML export directory or .zip archive")
	f.StringP("output", "o", "./obsidian-vault", "output Obsidian vault directory")
	f.String("attachment-root", defaults.AttachmentRoot, "vault folder attachments are copied into")
	f.Bool("single-line-breaks", defaults.SingleLineBreaks, "drop blank lines between paragraphs")
	f.Bool("preserve-colors", defaults.PreserveColoredText, "keep highlighted text as colored HTML spans")
	f.Bool("lenient-properties", defaults.LenientProperties, "drop properties of unknown kind instead of failing the page")
	f.String("filename-escaping", defaults.FilenameEscaping, "filename escaping mode: auto, posix, or windows")
	f.Int("workers", 0, "pages converted in parallel (0 means one per CPU)")
	f.Bool("bases", false, "write an Obsidian .base file next to pages that contain databases")
	f.String("metrics-file", "", "write conversion metrics in Prometheus text format to this file")
	f.BoolP("verbose", "v", false, "log every page")

	_ = viper.BindPFlags(f)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("notion-to-obsidian")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "notion-to-obsidian"))
		}
	}

	viper.SetEnvPrefix("NOTION_TO_OBSIDIAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configFrom overlays every explicitly set key on the default configuration.
func configFrom(v *viper.Viper) notion.Config {
	cfg := notion.DefaultConfig()
	if v.IsSet("attachment-root") {
		cfg.AttachmentRoot = v.GetString("attachment-root")
	}
	if v.IsSet("single-line-breaks") {
		cfg.SingleLineBreaks = v.GetBool("single-line-breaks")
	}
	if v.IsSet("preserve-colors") {
		cfg.PreserveColoredText = v.GetBool("preserve-colors")
	}
	if v.IsSet("lenient-properties") {
		cfg.LenientProperties = v.GetBool("lenient-properties")
	}
	if v.IsSet("filename-escaping") {
		cfg.FilenameEscaping = v.GetString("filename-escaping")
	}
	if v.IsSet("whitespace.leadingSpaces") {
		cfg.Whitespace.LeadingSpaces = v.GetString("whitespace.leadingSpaces")
	}
	if v.IsSet("whitespace.indentedBlocks") {
		cfg.Whitespace.IndentedBlocks = v.GetString("whitespace.indentedBlocks")
	}
	if v.IsSet("whitespace.shiftEnter") {
		cfg.Whitespace.ShiftEnter = v.GetString("whitespace.shiftEnter")
	}
	return cfg
}

func runImport(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	input := viper.GetString("input")
	if input == "" {
		return fmt.Errorf("--input is required")
	}
	output := viper.GetString("output")

	metricsFile := viper.GetString("metrics-file")
	registry := prometheus.NewRegistry()
	var recorder importer.Recorder = importer.NoopRecorder{}
	if metricsFile != "" {
		recorder = importer.NewPrometheusRecorder(registry)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := importer.Importer{
		InputPath: input,
		OutputDir: output,
		Config:    configFrom(viper.GetViper()),
		Workers:   viper.GetInt("workers"),
		EmitBases: viper.GetBool("bases"),
		Logger:    logger,
		Recorder:  recorder,
	}.Run(ctx)

	if metricsFile != "" {
		if werr := prometheus.WriteToTextfile(metricsFile, registry); werr != nil {
			logger.Warn("could not write metrics", importer.Output(metricsFile), importer.Error(werr))
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintln(os.Stdout, renderSummary(stats, output, time.Since(start)))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
