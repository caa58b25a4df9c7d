package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MarkStore remembers which reviews a user has already marked helpful, so
// the UI can disable the control and skip the round trip that the server
// would reject anyway. The server's vote table stays authoritative: the
// store is a local convenience, not the source of truth.
//
// Marks are persisted as a JSON file named review_helpful_{userID}.json.
type MarkStore struct {
	path string

	mu    sync.Mutex
	marks map[string]bool
}

// NewMarkStore loads (or initializes) the mark store for a user inside dir.
func NewMarkStore(dir, userID string) (*MarkStore, error) {
	s := &MarkStore{
		path:  filepath.Join(dir, fmt.Sprintf("review_helpful_%s.json", userID)),
		marks: make(map[string]bool),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read mark store: %w", err)
	}

	// A corrupt file is treated as empty rather than blocking votes.
	if err := json.Unmarshal(data, &s.marks); err != nil {
		s.marks = make(map[string]bool)
	}

	return s, nil
}

// Has reports whether the review was already marked helpful locally.
func (s *MarkStore) Has(reviewID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks[reviewID]
}

// Add records a helpful mark and persists the store.
func (s *MarkStore) Add(reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.marks[reviewID] {
		return nil
	}
	s.marks[reviewID] = true

	data, err := json.Marshal(s.marks)
	if err != nil {
		return fmt.Errorf("marshal mark store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write mark store: %w", err)
	}
	return nil
}
