package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FileStore keeps one JSON file per user under a storage root. Each
// mutation is a read-modify-write cycle finished with an atomic rename,
// so a crash mid-write leaves the previous file intact. Mutations for
// the same user are serialized by a per-user mutex; different users do
// not contend. There is no cross-process locking: concurrent processes
// sharing a storage root get last-writer-wins semantics per user.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) LoadUserMemory(_ context.Context, userID string) (UserMemory, error) {
	if err := validateUserID(userID); err != nil {
		return UserMemory{}, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.load(userID), nil
}

func (s *FileStore) AddMessage(_ context.Context, userID string, role Role, content string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	mem := s.load(userID)
	mem.Conversations = append(mem.Conversations, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if n := len(mem.Conversations); n > MaxConversationLength {
		mem.Conversations = mem.Conversations[n-MaxConversationLength:]
	}

	return s.persist(mem)
}

func (s *FileStore) AddSummary(_ context.Context, userID string, kind SummaryType, summary string, metadata map[string]string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	mem := s.load(userID)
	id := "sum_" + gonanoid.Must()
	mem.Summaries = append(mem.Summaries, SummaryRecord{
		ID:        id,
		Type:      kind,
		Summary:   summary,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})

	if err := s.persist(mem); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FileStore) GetRecentConversation(_ context.Context, userID string, limit int) ([]Message, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	mem := s.load(userID)
	if limit <= 0 || limit > len(mem.Conversations) {
		limit = len(mem.Conversations)
	}
	out := make([]Message, limit)
	copy(out, mem.Conversations[len(mem.Conversations)-limit:])
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// load reads the persisted state for userID. A missing, unreadable, or
// unparseable file yields a fresh empty state rather than an error:
// availability wins over strict durability of a single corrupted record.
func (s *FileStore) load(userID string) UserMemory {
	mem := UserMemory{
		UserID:        userID,
		Conversations: []Message{},
		Summaries:     []SummaryRecord{},
	}

	raw, err := os.ReadFile(s.path(userID))
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(raw, &mem); err != nil {
		return UserMemory{
			UserID:        userID,
			Conversations: []Message{},
			Summaries:     []SummaryRecord{},
		}
	}

	mem.UserID = userID
	if mem.Conversations == nil {
		mem.Conversations = []Message{}
	}
	if mem.Summaries == nil {
		mem.Summaries = []SummaryRecord{}
	}
	return mem
}

// persist writes the full state to a temp file in the storage root and
// renames it over the user's file.
func (s *FileStore) persist(mem UserMemory) error {
	raw, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("encode user memory: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, sanitizeUserID(mem.UserID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write user memory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(mem.UserID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace user memory file: %w", err)
	}
	return nil
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.root, sanitizeUserID(userID)+".json")
}

func (s *FileStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

// sanitizeUserID maps an external user identifier onto a safe filename.
// Anything outside [A-Za-z0-9._-] becomes an underscore, so identifiers
// cannot escape the storage root.
func sanitizeUserID(userID string) string {
	var b strings.Builder
	b.Grow(len(userID))
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, ".") == "" {
		return "user"
	}
	return out
}
