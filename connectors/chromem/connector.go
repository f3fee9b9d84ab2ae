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

// Package chromem wraps the embedded chromem-go vector database behind the
// narrow search contract the retrieval adapter consumes. Document ingestion
// and chunking live outside the orchestration core; this connector only
// needs to add pre-chunked policy excerpts and answer similarity queries.
package chromem

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"
)

// Config holds vector store configuration
type Config struct {
	PersistPath string // Directory to persist data; empty for in-memory
	Collection  string // Collection name (default: "healthcare_policies")
}

// Document represents a stored policy excerpt
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string // expects "source" with the document name
}

// SearchResult is a single similarity hit, highest similarity first
type SearchResult struct {
	Document   Document
	Similarity float32 // 0.0 to 1.0
}

// Store manages policy embeddings and similarity search
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     Config
}

// NewStore creates a vector store using the default embedding backend.
func NewStore(config Config) (*Store, error) {
	return NewStoreWithEmbedding(config, chromem.NewEmbeddingFuncDefault())
}

// NewStoreWithEmbedding creates a vector store with an explicit embedding
// function. Tests inject a deterministic local function here.
func NewStoreWithEmbedding(config Config, embed chromem.EmbeddingFunc) (*Store, error) {
	if config.Collection == "" {
		config.Collection = "healthcare_policies"
	}

	var db *chromem.DB
	var err error

	if config.PersistPath != "" {
		persistFile := filepath.Join(config.PersistPath, "policies.gob")
		db, err = chromem.NewPersistentDB(persistFile, false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		config:     config,
	}, nil
}

// Add stores documents in the collection
func (s *Store) Add(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Search performs similarity search by text query. An empty collection
// yields an empty result, never an error, so callers can proceed ungrounded.
func (s *Store) Search(ctx context.Context, queryText string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	// chromem rejects nResults larger than the stored document count
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		searchResults = append(searchResults, SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}

	return searchResults, nil
}

// Count returns the number of stored documents
func (s *Store) Count() int {
	return s.collection.Count()
}
