// Copyright 2026 PolicyCopilot
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"policycopilot/platform/connectors/chromem"
	"policycopilot/platform/shared/logger"
)

// Searcher is the vector-store boundary the retrieval adapter depends on.
// Implementations perform semantic similarity search over policy documents.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]RetrievedPassage, error)
}

// RetrievalAdapter wraps a Searcher with timeout, ranking, filtering, and
// optional caching. Retrieval failure is not fatal: the adapter returns an
// empty passage list and the pipeline proceeds ungrounded.
type RetrievalAdapter struct {
	searcher Searcher
	cache    *QueryCache
	metrics  *MetricsCollector
	topK     int
	minScore float64
	timeout  time.Duration
	log      *logger.Logger
}

// NewRetrievalAdapter creates an adapter over the given store. Cache and
// metrics may be nil.
func NewRetrievalAdapter(searcher Searcher, cache *QueryCache, metrics *MetricsCollector, cfg RetrievalConfig) *RetrievalAdapter {
	return &RetrievalAdapter{
		searcher: searcher,
		cache:    cache,
		metrics:  metrics,
		topK:     cfg.TopK,
		minScore: cfg.MinRelevance,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:      logger.New("retrieval"),
	}
}

// Retrieve returns up to topK passages ordered by relevance descending,
// dropping passages below the relevance floor. Identical query text yields
// identical passages whether served from the store or the cache.
func (a *RetrievalAdapter) Retrieve(ctx context.Context, queryID, queryText string) []RetrievedPassage {
	if a.cache != nil {
		if passages, ok := a.cache.Get(ctx, queryText); ok {
			if a.metrics != nil {
				a.metrics.CacheHit()
			}
			return passages
		}
		if a.metrics != nil {
			a.metrics.CacheMiss()
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := a.searcher.Search(searchCtx, queryText, a.topK)
	if err != nil {
		a.log.Warn(queryID, fmt.Sprintf("retrieval failed, proceeding without context: %v", err), nil)
		if a.metrics != nil {
			a.metrics.RetrievalFailure()
		}
		return nil
	}

	passages := rankAndFilter(results, a.topK, a.minScore)

	if a.cache != nil && len(passages) > 0 {
		a.cache.Set(ctx, queryText, passages)
	}
	return passages
}

// rankAndFilter sorts by relevance descending, drops low-relevance hits,
// and truncates to topK. Sorting is stable so equal scores keep store order.
func rankAndFilter(results []RetrievedPassage, topK int, minScore float64) []RetrievedPassage {
	var kept []RetrievedPassage
	for _, r := range results {
		if r.RelevanceScore >= minScore {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})

	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// chromemSearcher adapts the embedded chromem vector store to Searcher
type chromemSearcher struct {
	store *chromem.Store
}

// NewChromemSearcher wraps an embedded chromem store
func NewChromemSearcher(store *chromem.Store) Searcher {
	return &chromemSearcher{store: store}
}

func (s *chromemSearcher) Search(ctx context.Context, query string, topK int) ([]RetrievedPassage, error) {
	results, err := s.store.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	passages := make([]RetrievedPassage, 0, len(results))
	for _, r := range results {
		source := r.Document.ID
		if name, ok := r.Document.Metadata["source"]; ok && name != "" {
			source = name
		}
		passages = append(passages, RetrievedPassage{
			SourceDocument: source,
			Excerpt:        r.Document.Content,
			RelevanceScore: float64(r.Similarity),
		})
	}
	return passages, nil
}
