// Package indexsvc wires internal/ingest's column materialization into a
// resident pkg/lshindex.Index, the shared core both the CLI's one-shot
// "index" command and the long-running "serve" process build on.
package indexsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/simlsh/internal/ingest"
	"github.com/Sumatoshi-tech/simlsh/pkg/config"
	"github.com/Sumatoshi-tech/simlsh/pkg/lshindex"
	"github.com/Sumatoshi-tech/simlsh/pkg/minhash"
	"github.com/Sumatoshi-tech/simlsh/pkg/observability"
)

// ColumnInfo describes one indexed column for reporting and lookup.
type ColumnInfo struct {
	ID               string `json:"id"`
	File             string `json:"file"`
	Column           string `json:"column"`
	RawCount         int    `json:"raw_count"`
	DistinctEstimate uint64 `json:"distinct_estimate"`
}

// Service owns a resident index plus the sketch and metadata needed to
// answer queries by column ID. Per the core's concurrency model the index
// itself is not safe for concurrent mutation; Service serializes inserts
// and allows concurrent reads with a RWMutex.
type Service struct {
	mu       sync.RWMutex
	idx      *lshindex.Index[string]
	sketches map[string]*minhash.Sketch
	infos    map[string]ColumnInfo
	assigned map[string]map[string]string // file -> column name -> assigned ID
	k        int
	metrics  *observability.IndexMetrics
	columns  *ingest.ColumnCache
}

// New builds a Service from cfg's index and ingest sections. metrics may be
// nil, in which case insert accounting is skipped.
func New(cfg config.IndexConfig, ingestCfg config.IngestConfig, metrics *observability.IndexMetrics) (*Service, error) {
	var (
		idx *lshindex.Index[string]
		err error
	)

	if cfg.Bands > 0 && cfg.Rows > 0 {
		idx, err = lshindex.FromParams[string](cfg.Threshold, cfg.DefaultK, cfg.Bands, cfg.Rows)
	} else {
		idx, err = lshindex.FromThreshold[string](cfg.Threshold, cfg.DefaultK, lshindex.Weights{FP: cfg.FPWeight, FN: cfg.FNWeight})
	}

	if err != nil {
		return nil, fmt.Errorf("indexsvc: build index: %w", err)
	}

	return &Service{
		idx:      idx,
		sketches: make(map[string]*minhash.Sketch),
		infos:    make(map[string]ColumnInfo),
		assigned: make(map[string]map[string]string),
		k:        cfg.DefaultK,
		metrics:  metrics,
		columns:  ingest.NewColumnCache(ingestCfg.ColumnCacheSize),
	}, nil
}

// IngestGlob enumerates pattern, materializes every matched file's columns,
// and inserts one sketch per column keyed by a fresh UUID. A (file, column)
// pair already ingested in a prior call reuses its assigned ID and is not
// re-inserted, so repeated or overlapping globs against a long-running
// Service never duplicate index entries. It returns the ColumnInfo for
// every column in pattern's match set, in no particular order.
func (s *Service) IngestGlob(ctx context.Context, pattern string, maxCardinality int) ([]ColumnInfo, error) {
	files, err := ingest.Enumerate(pattern)
	if err != nil {
		return nil, err
	}

	infos := make([]ColumnInfo, 0, len(files))

	for _, file := range files {
		columns, cached := s.columns.Get(file)
		if !cached {
			var colErr error

			columns, colErr = ingest.Columns(file, s.k, uint(maxCardinality))
			if colErr != nil {
				return nil, colErr
			}

			s.columns.Put(file, columns)
		}

		for name, col := range columns {
			info, isNewKey, bucketSizes, upsertErr := s.upsert(file, name, col)
			if upsertErr != nil {
				return nil, upsertErr
			}

			s.metrics.RecordInsert(ctx, isNewKey, bucketSizes)

			infos = append(infos, info)
		}
	}

	return infos, nil
}

// upsert returns the ColumnInfo for (file, name). If this pair was already
// assigned an ID by a prior IngestGlob call, that ID and its stored info are
// reused and col is not re-inserted into the index; otherwise a fresh UUID
// is minted and col.Sketch is inserted under it. bucketSizes is nil when no
// insert was performed.
func (s *Service) upsert(file, name string, col *ingest.ColumnSet) (ColumnInfo, bool, []int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.assigned[file][name]; ok {
		return s.infos[id], false, nil, nil
	}

	id := uuid.NewString()

	info := ColumnInfo{
		ID:               id,
		File:             file,
		Column:           name,
		RawCount:         col.RawCount,
		DistinctEstimate: col.DistinctEstimate(),
	}

	if _, err := s.idx.Insert(id, col.Sketch); err != nil {
		return ColumnInfo{}, false, nil, fmt.Errorf("indexsvc: insert %s: %w", id, err)
	}

	s.sketches[id] = col.Sketch
	s.infos[id] = info

	if s.assigned[file] == nil {
		s.assigned[file] = make(map[string]string)
	}

	s.assigned[file][name] = id

	sizes, _ := s.idx.BucketSizes(col.Sketch)

	return info, true, sizes, nil
}

// Query looks up the column previously inserted under id and returns every
// candidate column (including id itself, per the core's self-match
// guarantee) at or above the index's configured threshold.
func (s *Service) Query(id string) ([]ColumnInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sketch, ok := s.sketches[id]
	if !ok {
		return nil, fmt.Errorf("indexsvc: unknown column id %q", id)
	}

	keys, err := s.idx.Query(sketch)
	if err != nil {
		return nil, fmt.Errorf("indexsvc: query %s: %w", id, err)
	}

	results := make([]ColumnInfo, 0, len(keys))
	for key := range keys {
		if info, found := s.infos[key]; found {
			results = append(results, info)
		}
	}

	return results, nil
}

// Info returns the stored metadata for id.
func (s *Service) Info(id string) (ColumnInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[id]

	return info, ok
}

// Len returns the number of distinct columns currently indexed.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.infos)
}
