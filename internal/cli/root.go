// Package cli implements the Cobra command hierarchy for the repo-mcp
// server. The root command defined here is the entry point: it loads
// configuration, builds the index and adapter registry, and serves the
// JSON-line protocol over stdin/stdout until input is exhausted.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/fallback"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/goast"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/lexfam"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/registry"
	"github.com/taggedzi/repo-mcp-go/internal/applog"
	"github.com/taggedzi/repo-mcp-go/internal/audit"
	"github.com/taggedzi/repo-mcp-go/internal/buildinfo"
	"github.com/taggedzi/repo-mcp-go/internal/dispatch"
	"github.com/taggedzi/repo-mcp-go/internal/indexstore"
	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
	"github.com/taggedzi/repo-mcp-go/internal/tools"
)

// flags holds the parsed global flag values, registered in init and
// applied to the effective configuration by loadConfig.
type flags struct {
	dir           string
	dataDir       string
	configPath    string
	maxFileBytes  int64
	maxOpenLines  int
	maxBytesResp  int64
	maxSearchHits int
	maxReferences int
	noHostAST     bool
	verbose       bool
	quiet         bool
}

var flagValues = &flags{}

var rootCmd = &cobra.Command{
	Use:     "repo-mcp",
	Version: buildinfo.Version,
	Short:   "Serve read-only repository introspection over a JSON-line protocol.",
	Long: `repo-mcp indexes a source tree and answers a fixed set of read-only
queries over it — file listing, full-text search, symbol outlines, reference
lookups, and budget-bounded context bundles — speaking one JSON object per
line on stdin and one per line on stdout.

It never writes to the repository it inspects, and every response passes
through the same size and security limits regardless of which tool produced
it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := applog.ResolveLevel(flagValues.verbose, flagValues.quiet)
		format := applog.ResolveFormat()
		applog.Setup(level, format)
		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), flagValues, os.Stdin, os.Stdout)
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&flagValues.dir, "dir", "d", ".", "repository root to index and serve")
	f.StringVar(&flagValues.dataDir, "data-dir", "", "override the index/cache directory (relative to --dir)")
	f.StringVarP(&flagValues.configPath, "config", "c", "", "path to a repo_mcp.toml config file")
	f.Int64Var(&flagValues.maxFileBytes, "max-file-bytes", 0, "override max_file_bytes (0 keeps config default)")
	f.IntVar(&flagValues.maxOpenLines, "max-open-lines", 0, "override max_open_lines (0 keeps config default)")
	f.Int64Var(&flagValues.maxBytesResp, "max-total-bytes-per-response", 0, "override max_total_bytes_per_response (0 keeps config default)")
	f.IntVar(&flagValues.maxSearchHits, "max-search-hits", 0, "override max_search_hits (0 keeps config default)")
	f.IntVar(&flagValues.maxReferences, "max-references", 0, "override max_references (0 keeps config default)")
	f.BoolVar(&flagValues.noHostAST, "no-host-ast", false, "disable the Go AST adapter, falling back to lexical scanning everywhere")
	f.BoolVarP(&flagValues.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVarP(&flagValues.quiet, "quiet", "q", false, "only log errors")
}

// Execute runs the root command, returning a process exit code: 0 on
// success, 1 on any error.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error())
		return 1
	}
	return 0
}

// RootCmd returns the root cobra.Command for use in testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

func runServe(ctx context.Context, f *flags, stdin io.Reader, stdout io.Writer) error {
	repoRoot, err := filepath.Abs(f.dir)
	if err != nil {
		return fmt.Errorf("resolve --dir: %w", err)
	}

	cfg, err := loadConfig(repoRoot, f)
	if err != nil {
		return err
	}

	store := indexstore.New(cfg.RepoRoot, cfg.DataDir)
	refreshed, err := store.Refresh(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("build initial index: %w", err)
	}
	slog.Info("index ready", "added", refreshed.Added, "updated", refreshed.Updated, "removed", refreshed.Removed)

	reg := buildRegistry(cfg)

	auditPath := filepath.Join(cfg.RepoRoot, cfg.DataDir, "audit.jsonl")
	auditLogger, err := audit.NewLogger(auditPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	deps := tools.Deps{
		Config:   cfg,
		Limits:   cfg.PolicyLimits(),
		Store:    store,
		Registry: reg,
		Audit:    auditLogger,
	}
	handlers := tools.NewRegistry(deps)
	d := dispatch.New(handlers, auditLogger, deps.Limits)

	slog.Info("serving", "repo_root", cfg.RepoRoot, "tools", tools.Names())
	return d.Serve(ctx, stdin, stdout)
}

func loadConfig(repoRoot string, f *flags) (repoconfig.Effective, error) {
	base := repoconfig.Default(repoRoot)

	var file *repoconfig.File
	if f.configPath != "" {
		data, err := os.ReadFile(f.configPath)
		if err != nil {
			return repoconfig.Effective{}, fmt.Errorf("read config %s: %w", f.configPath, err)
		}
		parsed, err := repoconfig.LoadFile(data, f.configPath)
		if err != nil {
			return repoconfig.Effective{}, err
		}
		file = parsed
	}

	overrides := &repoconfig.Overrides{}
	if f.dataDir != "" {
		overrides.DataDir = &f.dataDir
	}
	if f.maxFileBytes > 0 {
		overrides.MaxFileBytes = &f.maxFileBytes
	}
	if f.maxOpenLines > 0 {
		overrides.MaxOpenLines = &f.maxOpenLines
	}
	if f.maxBytesResp > 0 {
		overrides.MaxTotalBytes = &f.maxBytesResp
	}
	if f.maxSearchHits > 0 {
		overrides.MaxSearchHits = &f.maxSearchHits
	}
	if f.maxReferences > 0 {
		overrides.MaxReferences = &f.maxReferences
	}
	if f.noHostAST {
		enabled := false
		overrides.HostASTEnabled = &enabled
	}

	return repoconfig.Merge(base, file, overrides), nil
}

// buildRegistry wires every known adapter in a fixed order: the Go AST
// adapter first (when enabled), then one lexical adapter per language
// family, with the lexical fallback catching anything else. A language can
// be disabled individually via Adapters.Enabled["<adapter-name>"]=false.
func buildRegistry(cfg repoconfig.Effective) *registry.Registry {
	reg := registry.New()
	if cfg.Adapters.HostASTEnabled {
		reg.Register(goast.New(), false)
	}

	lexAdapters := []adapter.LanguageAdapter{
		lexfam.NewPython(),
		lexfam.NewJavaScriptTypeScript(),
		lexfam.NewJava(),
		lexfam.NewRust(),
		lexfam.NewCpp(),
		lexfam.NewCSharp(),
	}
	for _, a := range lexAdapters {
		if enabled, set := cfg.Adapters.Enabled[a.Name()]; set && !enabled {
			continue
		}
		reg.Register(a, false)
	}

	reg.Register(fallback.New(), true)
	return reg
}
