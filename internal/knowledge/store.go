// Package knowledge provides the store-data context used to ground
// assistant replies. It is a deliberately small keyword retriever: the
// bridge only needs an appendable prompt fragment, never a hard failure.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/jaspers-market/chatbridge/pkg/logging"
)

const defaultTopK = 3

// Document is one unit of store knowledge (menu section, opening hours,
// delivery policy).
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Store holds documents in memory and answers keyword-overlap queries.
type Store struct {
	logger *logging.Logger
	topK   int

	mu   sync.RWMutex
	docs []scoredDocument
}

type scoredDocument struct {
	doc    Document
	tokens map[string]struct{}
}

// NewStore creates an empty store.
func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		logger: logger,
		topK:   defaultTopK,
	}
}

// LoadFile seeds the store from a JSON array of documents.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("knowledge: read file: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("knowledge: decode file: %w", err)
	}
	s.Add(docs...)
	s.logger.Info("knowledge base loaded", "path", path, "documents", len(docs))
	return nil
}

// Add indexes the given documents.
func (s *Store) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs = append(s.docs, scoredDocument{
			doc:    doc,
			tokens: tokenize(doc.Title + " " + doc.Content),
		})
	}
}

// ContextForQuery returns a prompt fragment with the most relevant
// documents, or "" when nothing matches. It never fails for a miss.
func (s *Store) ContextForQuery(_ context.Context, query string) (string, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return "", nil
	}

	s.mu.RLock()
	type hit struct {
		score int
		index int
	}
	var hits []hit
	for i, cand := range s.docs {
		score := 0
		for token := range queryTokens {
			if _, ok := cand.tokens[token]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{score: score, index: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > s.topK {
		hits = hits[:s.topK]
	}

	var builder strings.Builder
	for i, h := range hits {
		doc := s.docs[h.index].doc
		if i == 0 {
			builder.WriteString("INFORMATIONS DU MAGASIN:\n")
		}
		if doc.Title != "" {
			builder.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, doc.Title, doc.Content))
		} else {
			builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, doc.Content))
		}
	}
	s.mu.RUnlock()

	return strings.TrimSpace(builder.String()), nil
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) < 3 {
			// Articles and glue words carry no signal.
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}
