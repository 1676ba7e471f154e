// Package indexstore persists the file and chunk inventory to disk as
// atomically-written JSON/JSONL, tracks a schema version, and serves cached
// BM25 search documents built from that inventory.
package indexstore

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/xxh3"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/audit"
	"github.com/taggedzi/repo-mcp-go/internal/bm25"
	"github.com/taggedzi/repo-mcp-go/internal/chunking"
	"github.com/taggedzi/repo-mcp-go/internal/discover"
	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
)

// SchemaVersion is the on-disk schema version written to manifest.json.
const SchemaVersion = 1

// Manifest is the small top-level descriptor of the persisted index.
type Manifest struct {
	SchemaVersion   int    `json:"schema_version"`
	LastRefreshTime string `json:"last_refresh_timestamp"`
	FileCount       int    `json:"indexed_file_count"`
	ChunkCount      int    `json:"indexed_chunk_count"`
}

// Status summarizes the current on-disk index state.
type Status struct {
	State           string `json:"state"` // not_indexed | schema_mismatch | ready
	SchemaVersion   int    `json:"schema_version,omitempty"`
	FileCount       int    `json:"indexed_file_count,omitempty"`
	ChunkCount      int    `json:"indexed_chunk_count,omitempty"`
	LastRefreshTime string `json:"last_refresh_timestamp,omitempty"`
}

// ChunkRecord is the persisted shape of one chunk.
type ChunkRecord struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	ChunkID   string `json:"chunk_id"`
	Text      string `json:"text"`
}

// RefreshResult is the per-refresh counts/timing summary returned to
// repo.refresh_index.
type RefreshResult struct {
	Added          int             `json:"added"`
	Updated        int             `json:"updated"`
	Removed        int             `json:"removed"`
	DurationMS     int64           `json:"duration_ms"`
	Timestamp      string          `json:"timestamp"`
	RefreshProfile discover.Profile `json:"refresh_profile"`
}

// Store is the on-disk index for one repository.
type Store struct {
	repoRoot     string
	dataDir      string
	indexDir     string
	manifestPath string
	filesPath    string
	chunksPath   string
	dataDirPrefix string

	mu          sync.Mutex
	cacheMarker string
	cachedDocs  []bm25.Document
}

// New opens (without refreshing) the index store rooted at repoRoot, with
// on-disk state under <repoRoot>/<dataDir>/index/.
func New(repoRoot, dataDir string) *Store {
	indexDir := filepath.Join(dataDir, "index")
	return &Store{
		repoRoot:      repoRoot,
		dataDir:       dataDir,
		indexDir:      indexDir,
		manifestPath:  filepath.Join(repoRoot, indexDir, "manifest.json"),
		filesPath:     filepath.Join(repoRoot, indexDir, "files.jsonl"),
		chunksPath:    filepath.Join(repoRoot, indexDir, "chunks.jsonl"),
		dataDirPrefix: filepath.ToSlash(dataDir),
	}
}

// Status reads the manifest and reports whether the index is absent,
// schema-incompatible, or ready.
func (s *Store) Status() (Status, error) {
	data, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return Status{State: "not_indexed"}, nil
	}
	if err != nil {
		return Status{}, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Status{}, err
	}
	if m.SchemaVersion != SchemaVersion {
		return Status{State: "schema_mismatch", SchemaVersion: m.SchemaVersion}, nil
	}
	return Status{
		State:           "ready",
		SchemaVersion:   m.SchemaVersion,
		FileCount:       m.FileCount,
		ChunkCount:      m.ChunkCount,
		LastRefreshTime: m.LastRefreshTime,
	}, nil
}

// Refresh walks the repository, recomputes chunks for added/updated files,
// and atomically writes the updated manifest/files/chunks.
func (s *Store) Refresh(ctx context.Context, cfg repoconfig.Effective, force bool) (RefreshResult, error) {
	start := time.Now()

	previous, loadErr := s.loadFileRecords(force)
	if loadErr != nil {
		if !force {
			return RefreshResult{}, loadErr
		}
		// With force=true a schema mismatch is already permitted by
		// loadFileRecords; any other load error discards the previous
		// inventory, so every surviving file counts as new.
		previous = nil
	}
	previousMap := make(map[string]discover.FileRecord, len(previous))
	for _, r := range previous {
		previousMap[r.Path] = r
	}

	current, profile, err := discover.Run(ctx, s.repoRoot, cfg, previousMap, s.dataDirPrefix)
	if err != nil {
		return RefreshResult{}, err
	}

	delta := discover.DetectDelta(previousMap, current)
	if force {
		// A forced refresh rebuilds every surviving file: unchanged paths
		// are re-chunked and counted as updated.
		delta.Updated = append(delta.Updated, delta.Unchanged...)
		sort.Strings(delta.Updated)
		delta.Unchanged = nil
	}

	chunkPaths := make(map[string]bool, len(delta.Added)+len(delta.Updated))
	for _, p := range delta.Added {
		chunkPaths[p] = true
	}
	for _, p := range delta.Updated {
		chunkPaths[p] = true
	}

	var allChunks []ChunkRecord
	byPath := make(map[string]discover.FileRecord, len(current))
	for _, r := range current {
		byPath[r.Path] = r
	}

	// Reuse existing chunks for unchanged files when possible, recompute
	// the rest.
	existingChunks, _ := s.loadChunks(true)
	existingByPath := make(map[string][]ChunkRecord)
	for _, c := range existingChunks {
		existingByPath[c.Path] = append(existingByPath[c.Path], c)
	}

	for _, path := range delta.Unchanged {
		allChunks = append(allChunks, existingByPath[path]...)
	}
	for path := range chunkPaths {
		rec := byPath[path]
		chunks, err := chunking.Split(path, rec.Content, cfg.Index.ChunkLines, cfg.Index.ChunkOverlapLines)
		if err != nil {
			continue
		}
		for _, c := range chunks {
			allChunks = append(allChunks, ChunkRecord{Path: c.Path, StartLine: c.StartLine, EndLine: c.EndLine, ChunkID: c.ChunkID, Text: c.Text})
		}
	}

	sort.Slice(allChunks, func(i, j int) bool {
		if allChunks[i].Path != allChunks[j].Path {
			return allChunks[i].Path < allChunks[j].Path
		}
		return allChunks[i].StartLine < allChunks[j].StartLine
	})

	timestamp := audit.UTCTimestamp()
	manifest := Manifest{
		SchemaVersion:   SchemaVersion,
		LastRefreshTime: timestamp,
		FileCount:       len(current),
		ChunkCount:      len(allChunks),
	}

	if err := s.writeAll(manifest, current, allChunks); err != nil {
		return RefreshResult{}, err
	}

	s.mu.Lock()
	s.cacheMarker = ""
	s.cachedDocs = nil
	s.mu.Unlock()

	return RefreshResult{
		Added:          len(delta.Added),
		Updated:        len(delta.Updated),
		Removed:        len(delta.Removed),
		DurationMS:     time.Since(start).Milliseconds(),
		Timestamp:      timestamp,
		RefreshProfile: profile,
	}, nil
}

// Search runs BM25 search over the cached (or freshly built) search
// documents, optionally scoped to a path prefix or a file glob.
func (s *Store) Search(query string, topK int, pathPrefix, fileGlob string) ([]bm25.Hit, error) {
	docs, err := s.searchDocuments()
	if err != nil {
		return nil, err
	}

	filtered := docs
	if pathPrefix != "" || fileGlob != "" {
		filtered = make([]bm25.Document, 0, len(docs))
		normPrefix := normalizePathPrefix(pathPrefix)
		for _, d := range docs {
			if normPrefix != "" && !hasPathPrefix(d.Path, normPrefix) {
				continue
			}
			if fileGlob != "" {
				if ok, _ := doublestar.Match(fileGlob, d.Path); !ok {
					continue
				}
			}
			filtered = append(filtered, d)
		}
	}

	return bm25.Search(filtered, query, topK), nil
}

func (s *Store) searchDocuments() ([]bm25.Document, error) {
	status, err := s.Status()
	if err != nil {
		return nil, err
	}
	if status.State != "ready" {
		return nil, apperr.New(apperr.IndexSchemaUnsupported, "index is not ready; call repo.refresh_index first")
	}

	marker := cacheKey(fmt.Sprintf("%d:%d:%d:%s", SchemaVersion, status.FileCount, status.ChunkCount, status.LastRefreshTime))

	s.mu.Lock()
	if s.cacheMarker == marker && s.cachedDocs != nil {
		docs := s.cachedDocs
		s.mu.Unlock()
		return docs, nil
	}
	s.mu.Unlock()

	chunks, err := s.loadChunks(false)
	if err != nil {
		return nil, err
	}

	docs := make([]bm25.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, bm25.Document{
			Path:      c.Path,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			ChunkID:   c.ChunkID,
			Tokens:    bm25.Tokenize(c.Text),
			Text:      c.Text,
		})
	}

	s.mu.Lock()
	s.cacheMarker = marker
	s.cachedDocs = docs
	s.mu.Unlock()

	return docs, nil
}

// LoadFileRecords returns the persisted file inventory.
func (s *Store) LoadFileRecords() ([]discover.FileRecord, error) {
	return s.loadFileRecords(false)
}

// LoadChunks returns the persisted chunk inventory.
func (s *Store) LoadChunks() ([]ChunkRecord, error) {
	return s.loadChunks(false)
}

func (s *Store) loadFileRecords(allowSchemaMismatch bool) ([]discover.FileRecord, error) {
	status, err := s.Status()
	if err != nil {
		return nil, err
	}
	if status.State == "not_indexed" {
		return nil, nil
	}
	if status.State == "schema_mismatch" && !allowSchemaMismatch {
		return nil, apperr.New(apperr.IndexSchemaUnsupported,
			fmt.Sprintf("index schema version %d is not supported (expected %d)", status.SchemaVersion, SchemaVersion))
	}

	f, err := os.Open(s.filesPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []discover.FileRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r discover.FileRecord
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}

func (s *Store) loadChunks(allowSchemaMismatch bool) ([]ChunkRecord, error) {
	status, err := s.Status()
	if err != nil {
		return nil, err
	}
	if status.State == "not_indexed" {
		return nil, nil
	}
	if status.State == "schema_mismatch" && !allowSchemaMismatch {
		return nil, apperr.New(apperr.IndexSchemaUnsupported,
			fmt.Sprintf("index schema version %d is not supported (expected %d)", status.SchemaVersion, SchemaVersion))
	}

	f, err := os.Open(s.chunksPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []ChunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c ChunkRecord
		if err := json.Unmarshal(line, &c); err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, scanner.Err()
}

func (s *Store) writeAll(manifest Manifest, files []discover.FileRecord, chunks []ChunkRecord) error {
	if err := os.MkdirAll(filepath.Join(s.repoRoot, s.indexDir), 0o755); err != nil {
		return err
	}

	if err := atomicWriteJSON(s.manifestPath, manifest); err != nil {
		return err
	}
	if err := atomicWriteJSONL(s.filesPath, files); err != nil {
		return err
	}
	if err := atomicWriteJSONLChunks(s.chunksPath, chunks); err != nil {
		return err
	}
	return nil
}

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWriteJSONL(path string, records []discover.FileRecord) error {
	buf := make([]byte, 0, 4096)
	for _, r := range records {
		persisted := discover.FileRecord{Path: r.Path, Size: r.Size, MtimeNS: r.MtimeNS, ContentHash: r.ContentHash}
		encoded, err := json.Marshal(persisted)
		if err != nil {
			return err
		}
		buf = append(buf, encoded...)
		buf = append(buf, '\n')
	}
	return atomicWrite(path, buf)
}

func atomicWriteJSONLChunks(path string, chunks []ChunkRecord) error {
	buf := make([]byte, 0, 4096)
	for _, c := range chunks {
		encoded, err := json.Marshal(c)
		if err != nil {
			return err
		}
		buf = append(buf, encoded...)
		buf = append(buf, '\n')
	}
	return atomicWrite(path, buf)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func normalizePathPrefix(prefix string) string {
	prefix = filepath.ToSlash(prefix)
	for len(prefix) > 1 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	prefix = trimDotSlash(prefix)
	return prefix
}

func trimDotSlash(p string) string {
	for len(p) >= 2 && p[0] == '.' && p[1] == '/' {
		p = p[2:]
	}
	return p
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)+1] == prefix+"/"
}

// cacheKey compresses the search-document cache marker into a fixed-size
// digest. The marker is an in-memory equality check only, never persisted or
// compared across processes, so a fast non-cryptographic hash fits.
func cacheKey(marker string) string {
	sum := xxh3.HashString128(marker).Bytes()
	return hex.EncodeToString(sum[:])
}
