// Package repoconfig assembles the effective server configuration by
// layering built-in defaults, an optional repo-level TOML file, and
// startup/CLI overrides, then clamping every limit to its hard cap.
package repoconfig

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
)

// Hard caps no configuration layer can exceed.
const (
	MaxFileBytesCap             = 4 * 1024 * 1024
	MaxOpenLinesCap              = 2000
	MaxTotalBytesPerResponseCap = 1024 * 1024
	MaxSearchHitsCap            = 200
	MaxReferencesCap            = 200
)

// DefaultIncludeExtensions are the file extensions discovery indexes unless
// overridden.
var DefaultIncludeExtensions = []string{
	".py", ".go", ".js", ".ts", ".tsx", ".jsx", ".java", ".rs", ".c", ".h",
	".cpp", ".hpp", ".cs", ".md", ".rst", ".toml", ".yaml", ".yml", ".json",
	".ini", ".cfg",
}

// DefaultExcludeGlobs are always excluded from discovery.
var DefaultExcludeGlobs = []string{
	"**/.git/**", "**/__pycache__/**", "**/.venv/**", "**/node_modules/**",
}

// Limits mirrors policy.Limits but is the on-disk/TOML-decodable shape;
// repoconfig.Effective converts it into policy.Limits after clamping.
type Limits struct {
	MaxFileBytes             int64 `toml:"max_file_bytes"`
	MaxOpenLines             int   `toml:"max_open_lines"`
	MaxTotalBytesPerResponse int64 `toml:"max_total_bytes_per_response"`
	MaxSearchHits            int   `toml:"max_search_hits"`
	MaxReferences            int   `toml:"max_references"`
}

// IndexConfig controls chunking/discovery parameters.
type IndexConfig struct {
	ChunkLines        int      `toml:"chunk_lines"`
	ChunkOverlapLines int      `toml:"chunk_overlap_lines"`
	IncludeExtensions []string `toml:"include_extensions"`
	ExcludeGlobs      []string `toml:"exclude_globs"`
}

// AdaptersConfig toggles the host AST adapter and individual lexical
// family members, all enabled by default.
type AdaptersConfig struct {
	HostASTEnabled bool            `toml:"host_ast_enabled"`
	Enabled        map[string]bool `toml:"enabled"`
}

// File is the decodable shape of repo_mcp.toml.
type File struct {
	Limits   *Limits   `toml:"limits"`
	Index    *IndexConfig `toml:"index"`
	Adapters *AdaptersConfig `toml:"adapters"`
	// Security is decoded only so its presence can be detected and its keys
	// rejected; it is never merged into the effective configuration.
	Security map[string]interface{} `toml:"security"`
}

// Overrides holds startup/CLI-supplied values; a nil pointer field means
// "not overridden."
type Overrides struct {
	DataDir           *string
	MaxFileBytes      *int64
	MaxOpenLines      *int
	MaxTotalBytes     *int64
	MaxSearchHits     *int
	MaxReferences     *int
	HostASTEnabled    *bool
}

// Effective is the fully merged, capped configuration the rest of the
// server operates against.
type Effective struct {
	RepoRoot string
	DataDir  string
	Limits   Limits
	Index    IndexConfig
	Adapters AdaptersConfig
}

// PolicyLimits converts the TOML-decodable Limits into policy.Limits, the
// shape tool handlers enforce against.
func (e Effective) PolicyLimits() policy.Limits {
	return policy.Limits{
		MaxFileBytes:             e.Limits.MaxFileBytes,
		MaxOpenLines:             e.Limits.MaxOpenLines,
		MaxTotalBytesPerResponse: e.Limits.MaxTotalBytesPerResponse,
		MaxSearchHits:            e.Limits.MaxSearchHits,
		MaxReferences:            e.Limits.MaxReferences,
	}
}

// Default returns the built-in baseline configuration for repoRoot.
func Default(repoRoot string) Effective {
	return Effective{
		RepoRoot: repoRoot,
		DataDir:  ".repo_mcp",
		Limits: Limits{
			MaxFileBytes:             1024 * 1024,
			MaxOpenLines:             500,
			MaxTotalBytesPerResponse: 256 * 1024,
			MaxSearchHits:            50,
			MaxReferences:            50,
		},
		Index: IndexConfig{
			ChunkLines:        200,
			ChunkOverlapLines: 30,
			IncludeExtensions: append([]string(nil), DefaultIncludeExtensions...),
			ExcludeGlobs:      append([]string(nil), DefaultExcludeGlobs...),
		},
		Adapters: AdaptersConfig{
			HostASTEnabled: true,
			Enabled:        map[string]bool{},
		},
	}
}

// deniedSecurityKeys are config keys that would relax the fixed denylist;
// their mere presence in a repo config file is a hard load error. The
// denylist itself is never configurable, in either direction.
var deniedSecurityKeys = map[string]bool{
	"denylist_override":  true,
	"denylist_allowlist": true,
	"denylist_relax":     true,
}

// LoadFile reads and decodes a TOML config file's bytes, rejecting
// denylist-relaxation keys outright and warning (not failing) on other
// unknown keys for forward compatibility.
func LoadFile(data []byte, source string) (*File, error) {
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, fmt.Sprintf("parse config %s", source), err)
	}

	for key := range f.Security {
		if deniedSecurityKeys[key] {
			return nil, apperr.New(apperr.InvalidRequest,
				fmt.Sprintf("config key security.%s attempts to relax the fixed security denylist and is rejected", key))
		}
	}

	if f.Adapters != nil && !meta.IsDefined("adapters", "host_ast_enabled") {
		// An [adapters] table that omits host_ast_enabled keeps the default.
		f.Adapters.HostASTEnabled = true
	}

	warnUndecodedKeys(meta, source)
	return &f, nil
}

func warnUndecodedKeys(meta toml.MetaData, source string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	slog.Warn("unknown config keys will be ignored", "source", source, "keys", strings.Join(keys, ", "))
}

// Merge layers a parsed File and Overrides on top of a base Effective
// config, returning the new effective config with every limit clamped to
// its hard cap.
func Merge(base Effective, file *File, overrides *Overrides) Effective {
	result := base

	if file != nil {
		if file.Limits != nil {
			mergeLimitsFromFile(&result.Limits, file.Limits)
		}
		if file.Index != nil {
			if file.Index.ChunkLines > 0 {
				result.Index.ChunkLines = file.Index.ChunkLines
			}
			if file.Index.ChunkOverlapLines >= 0 {
				result.Index.ChunkOverlapLines = file.Index.ChunkOverlapLines
			}
			if len(file.Index.IncludeExtensions) > 0 {
				result.Index.IncludeExtensions = file.Index.IncludeExtensions
			}
			if len(file.Index.ExcludeGlobs) > 0 {
				result.Index.ExcludeGlobs = file.Index.ExcludeGlobs
			}
		}
		if file.Adapters != nil {
			result.Adapters.HostASTEnabled = file.Adapters.HostASTEnabled
			if file.Adapters.Enabled != nil {
				result.Adapters.Enabled = file.Adapters.Enabled
			}
		}
	}

	if overrides != nil {
		if overrides.DataDir != nil {
			result.DataDir = *overrides.DataDir
		}
		if overrides.MaxFileBytes != nil {
			result.Limits.MaxFileBytes = *overrides.MaxFileBytes
		}
		if overrides.MaxOpenLines != nil {
			result.Limits.MaxOpenLines = *overrides.MaxOpenLines
		}
		if overrides.MaxTotalBytes != nil {
			result.Limits.MaxTotalBytesPerResponse = *overrides.MaxTotalBytes
		}
		if overrides.MaxSearchHits != nil {
			result.Limits.MaxSearchHits = *overrides.MaxSearchHits
		}
		if overrides.MaxReferences != nil {
			result.Limits.MaxReferences = *overrides.MaxReferences
		}
		if overrides.HostASTEnabled != nil {
			result.Adapters.HostASTEnabled = *overrides.HostASTEnabled
		}
	}

	clampLimits(&result.Limits)
	return result
}

func mergeLimitsFromFile(dst *Limits, src *Limits) {
	if src.MaxFileBytes > 0 {
		dst.MaxFileBytes = src.MaxFileBytes
	}
	if src.MaxOpenLines > 0 {
		dst.MaxOpenLines = src.MaxOpenLines
	}
	if src.MaxTotalBytesPerResponse > 0 {
		dst.MaxTotalBytesPerResponse = src.MaxTotalBytesPerResponse
	}
	if src.MaxSearchHits > 0 {
		dst.MaxSearchHits = src.MaxSearchHits
	}
	if src.MaxReferences > 0 {
		dst.MaxReferences = src.MaxReferences
	}
}

func clampLimits(l *Limits) {
	if l.MaxFileBytes > MaxFileBytesCap {
		l.MaxFileBytes = MaxFileBytesCap
	}
	if l.MaxOpenLines > MaxOpenLinesCap {
		l.MaxOpenLines = MaxOpenLinesCap
	}
	if l.MaxTotalBytesPerResponse > MaxTotalBytesPerResponseCap {
		l.MaxTotalBytesPerResponse = MaxTotalBytesPerResponseCap
	}
	if l.MaxSearchHits > MaxSearchHitsCap {
		l.MaxSearchHits = MaxSearchHitsCap
	}
	if l.MaxReferences > MaxReferencesCap {
		l.MaxReferences = MaxReferencesCap
	}
}
