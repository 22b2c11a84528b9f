// Package fallback serves canned upstream documents when live calls are
// exhausted. Documents are fixed at construction and never mutated.
package fallback

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vietddude/tmdbproxy/internal/core/domain"
)

//go:embed data/*.json
var embedded embed.FS

// Source supplies optional document overrides at startup.
// A nil document with a nil error means the source has no override.
type Source interface {
	FallbackDocument(ctx context.Context, kind domain.ResourceKind) ([]byte, error)
}

// Store maps each resource kind to its fallback document.
type Store struct {
	docs map[domain.ResourceKind][]byte
}

// New builds a Store from the embedded documents.
func New() (*Store, error) {
	docs := make(map[domain.ResourceKind][]byte, len(domain.ResourceKinds))
	for _, kind := range domain.ResourceKinds {
		data, err := embedded.ReadFile(fmt.Sprintf("data/%s.json", kind))
		if err != nil {
			return nil, fmt.Errorf("read embedded %s document: %w", kind, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("embedded %s document is not valid JSON", kind)
		}
		docs[kind] = data
	}
	return &Store{docs: docs}, nil
}

// NewWithSource builds a Store from the embedded documents, replacing any that
// src overrides. Overrides that fail to load or are not valid JSON are skipped.
func NewWithSource(ctx context.Context, src Source) (*Store, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}
	if src == nil {
		return s, nil
	}

	for _, kind := range domain.ResourceKinds {
		data, err := src.FallbackDocument(ctx, kind)
		if err != nil {
			slog.Warn("Failed to load fallback override", "resource", kind, "error", err)
			continue
		}
		if data == nil {
			continue
		}
		if !json.Valid(data) {
			slog.Warn("Ignoring fallback override with invalid JSON", "resource", kind)
			continue
		}
		s.docs[kind] = data
		slog.Info("Loaded fallback override", "resource", kind, "bytes", len(data))
	}
	return s, nil
}

// Document returns the fallback document for kind.
func (s *Store) Document(kind domain.ResourceKind) ([]byte, bool) {
	data, ok := s.docs[kind]
	return data, ok
}

// Documents returns every document keyed by kind. The returned slices are
// shared and must not be modified.
func (s *Store) Documents() map[domain.ResourceKind][]byte {
	out := make(map[domain.ResourceKind][]byte, len(s.docs))
	for k, v := range s.docs {
		out[k] = v
	}
	return out
}
