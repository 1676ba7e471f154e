// Package discover builds the incremental file inventory for the index: it
// walks the repository, reuses content hashes when size and mtime are
// unchanged from a previous run, and computes the added/updated/removed
// delta against that previous inventory.
package discover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/taggedzi/repo-mcp-go/internal/discovery"
	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
)

// FileRecord is one file's persisted discovery state.
type FileRecord struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	MtimeNS     int64  `json:"mtime_ns"`
	ContentHash string `json:"content_hash"`
	Content     string `json:"-"`
}

// Profile carries per-phase timings and counters for a single discovery run,
// surfaced through repo.refresh_index's refresh_profile field.
type Profile struct {
	TotalCandidates  int     `json:"total_candidates"`
	ExcludedByGlob   int     `json:"excluded_by_glob"`
	UnchangedReused  int     `json:"unchanged_reused"`
	BinaryExcluded   int     `json:"binary_excluded"`
	HashedFiles      int     `json:"hashed_files"`
	WalkSeconds      float64 `json:"walk_seconds"`
	HashSeconds      float64 `json:"hash_seconds"`
	TotalSeconds     float64 `json:"total_seconds"`
}

// Delta is the set of path-level changes between a previous and current
// inventory.
type Delta struct {
	Added     []string
	Updated   []string
	Unchanged []string
	Removed   []string
}

// Run walks repoRoot per cfg, reusing content hashes from previous records
// whenever a file's (size, mtime_ns) pair matches, and hashing everything
// else. dataDirPrefix (the repo-relative prefix of the index's own data
// directory, e.g. ".repo_mcp") is excluded from the result so the index
// never indexes itself.
func Run(ctx context.Context, repoRoot string, cfg repoconfig.Effective, previous map[string]FileRecord, dataDirPrefix string) ([]FileRecord, Profile, error) {
	start := time.Now()

	walker := discovery.NewWalker()
	filter := discovery.NewPatternFilter(discovery.PatternFilterOptions{
		Excludes:   cfg.Index.ExcludeGlobs,
		Extensions: stripLeadingDots(cfg.Index.IncludeExtensions),
	})

	walkStart := time.Now()
	result, err := walker.Walk(ctx, discovery.WalkerConfig{
		Root:           repoRoot,
		PatternFilter:  filter,
		DefaultIgnorer: discovery.NewDefaultIgnoreMatcher(),
	})
	walkSeconds := time.Since(walkStart).Seconds()
	if err != nil {
		return nil, Profile{}, err
	}

	profile := Profile{
		TotalCandidates: result.TotalFound,
		ExcludedByGlob:  result.SkipReasons["pattern_filter"],
		BinaryExcluded:  result.SkipReasons["binary"],
		WalkSeconds:     walkSeconds,
	}

	hashStart := time.Now()
	records := make([]FileRecord, 0, len(result.Files))
	for _, fd := range result.Files {
		if dataDirPrefix != "" && withinPrefix(fd.Path, dataDirPrefix) {
			continue
		}
		if fd.Error != nil {
			continue
		}

		absPath := fd.AbsPath
		info, statErr := os.Stat(absPath)
		if statErr != nil {
			continue
		}
		mtimeNS := info.ModTime().UnixNano()

		if prev, ok := previous[fd.Path]; ok && prev.Size == fd.Size && prev.MtimeNS == mtimeNS {
			rec := prev
			rec.Content = fd.Content
			records = append(records, rec)
			profile.UnchangedReused++
			continue
		}

		hash := contentFingerprint(fd.Content)
		profile.HashedFiles++
		records = append(records, FileRecord{
			Path:        fd.Path,
			Size:        fd.Size,
			MtimeNS:     mtimeNS,
			ContentHash: hash,
			Content:     fd.Content,
		})
	}
	profile.HashSeconds = time.Since(hashStart).Seconds()
	profile.TotalSeconds = time.Since(start).Seconds()

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, profile, nil
}

// DetectDelta compares previous and current inventories (both keyed by repo
// path) by content hash equality.
func DetectDelta(previous map[string]FileRecord, current []FileRecord) Delta {
	currentByPath := make(map[string]FileRecord, len(current))
	for _, r := range current {
		currentByPath[r.Path] = r
	}

	var delta Delta
	for path, cur := range currentByPath {
		prev, existed := previous[path]
		switch {
		case !existed:
			delta.Added = append(delta.Added, path)
		case prev.ContentHash != cur.ContentHash:
			delta.Updated = append(delta.Updated, path)
		default:
			delta.Unchanged = append(delta.Unchanged, path)
		}
	}
	for path := range previous {
		if _, stillPresent := currentByPath[path]; !stillPresent {
			delta.Removed = append(delta.Removed, path)
		}
	}

	sort.Strings(delta.Added)
	sort.Strings(delta.Updated)
	sort.Strings(delta.Unchanged)
	sort.Strings(delta.Removed)
	return delta
}

// contentFingerprint hashes file content into the persisted content_hash
// field, so it must be stable, collision-resistant, and unkeyed.
func contentFingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func withinPrefix(path, prefix string) bool {
	prefix = filepath.ToSlash(prefix)
	path = filepath.ToSlash(path)
	return path == prefix || len(path) > len(prefix) && path[:len(prefix)+1] == prefix+"/"
}

func stripLeadingDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		if len(e) > 0 && e[0] == '.' {
			out[i] = e[1:]
		} else {
			out[i] = e
		}
	}
	return out
}
