// Package profile owns the candidate's master profile document and the
// extraction cache feeding it. The profile is a JSON object persisted through
// a pluggable backend; all mutation goes through merge operations that are
// append-only and idempotent, so repeated ingestion of the same source never
// duplicates or destroys data.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"applykit/internal/errors"
)

// Backend abstracts profile persistence
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// naturalKeys are tried in order to identify an object element inside a
// profile list. Two objects sharing a natural key value are the same entity
// and get merged instead of appended.
var naturalKeys = []string{"name", "title", "id", "company", "institution"}

// Store holds the in-memory profile document and serializes all access
type Store struct {
	mu      sync.Mutex
	backend Backend
	data    map[string]any
	logger  *errors.Logger
}

// NewStore loads the profile from the backend. A missing or empty document
// starts as an empty profile rather than an error.
func NewStore(ctx context.Context, backend Backend, logger *errors.Logger) (*Store, error) {
	s := &Store{
		backend: backend,
		data:    make(map[string]any),
		logger:  logger,
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload(ctx context.Context) error {
	raw, err := s.backend.Load(ctx)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to load profile", err)
	}
	if len(raw) == 0 {
		s.data = make(map[string]any)
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "profile document is not a JSON object", err)
	}
	s.data = doc
	return nil
}

// Reload re-reads the profile from the backend, replacing the in-memory copy
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// JSON returns the current profile serialized as indented JSON
func (s *Store) JSON() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to serialize profile", err)
	}
	return string(raw), nil
}

// Snapshot returns a deep copy of the profile document
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopyMap(s.data)
}

// MergeAppend merges values into the list at the dotted path, creating
// intermediate objects as needed. Strings deduplicate case-insensitively;
// objects deduplicate on their natural key, with matching objects merged
// field by field (existing values win, absent fields are filled in). Returns
// the number of elements actually added. Calling twice with the same input
// adds zero the second time.
func (s *Store) MergeAppend(ctx context.Context, path string, values []any) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest, "merge path is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, setList, err := s.resolveList(path)
	if err != nil {
		return 0, err
	}

	added := 0
	changed := false
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if mergeString(&list, v) {
				added++
				changed = true
			}
		case map[string]any:
			grew, merged := mergeObject(&list, v)
			if grew {
				added++
			}
			if grew || merged {
				changed = true
			}
		default:
			return added, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("unsupported merge value type %T at path %s", value, path), nil)
		}
	}

	if !changed {
		return 0, nil
	}

	setList(list)
	if err := s.persist(ctx); err != nil {
		return added, err
	}
	return added, nil
}

// resolveList walks the dotted path and returns the list there plus a setter
// that writes the updated list back into the document tree.
func (s *Store) resolveList(path string) ([]any, func([]any), error) {
	segments := strings.Split(path, ".")
	node := s.data
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg]
		if !ok {
			next := make(map[string]any)
			node[seg] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("path segment %q is not an object", seg), nil)
		}
		node = next
	}

	leaf := segments[len(segments)-1]
	existing, ok := node[leaf]
	if !ok {
		return nil, func(l []any) { node[leaf] = l }, nil
	}
	list, ok := existing.([]any)
	if !ok {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("path %q does not point to a list", path), nil)
	}
	return list, func(l []any) { node[leaf] = l }, nil
}

func (s *Store) persist(ctx context.Context) error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to serialize profile", err)
	}
	if err := s.backend.Save(ctx, raw); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to persist profile", err)
	}
	return nil
}

// mergeString appends value unless an equal string already exists, compared
// case-insensitively after trimming.
func mergeString(list *[]any, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	for _, elem := range *list {
		if existing, ok := elem.(string); ok && strings.EqualFold(strings.TrimSpace(existing), trimmed) {
			return false
		}
	}
	*list = append(*list, trimmed)
	return true
}

// mergeObject appends value unless an existing object shares its natural
// key, in which case the existing object absorbs the value's absent fields.
// Returns whether the list grew and whether anything changed.
func mergeObject(list *[]any, value map[string]any) (grew, merged bool) {
	key, keyValue := naturalKey(value)
	if key == "" {
		// No identity to deduplicate on; fall back to whole-value equality
		for _, elem := range *list {
			if existing, ok := elem.(map[string]any); ok && equalJSON(existing, value) {
				return false, false
			}
		}
		*list = append(*list, deepCopyMap(value))
		return true, false
	}

	for _, elem := range *list {
		existing, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		_, existingValue := naturalKeyNamed(existing, key)
		if existingValue == "" || !strings.EqualFold(existingValue, keyValue) {
			continue
		}
		for field, fieldValue := range value {
			if _, present := existing[field]; !present {
				existing[field] = deepCopyValue(fieldValue)
				merged = true
			}
		}
		return false, merged
	}

	*list = append(*list, deepCopyMap(value))
	return true, false
}

// naturalKey returns the first natural key present in the object with a
// non-empty string value.
func naturalKey(obj map[string]any) (key, value string) {
	for _, candidate := range naturalKeys {
		if k, v := naturalKeyNamed(obj, candidate); k != "" {
			return k, v
		}
	}
	return "", ""
}

func naturalKeyNamed(obj map[string]any, key string) (string, string) {
	raw, ok := obj[key]
	if !ok {
		return "", ""
	}
	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", ""
	}
	return key, strings.TrimSpace(value)
}

func equalJSON(a, b map[string]any) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ra) == string(rb)
}

func deepCopyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, elem := range typed {
			out[i] = deepCopyValue(elem)
		}
		return out
	default:
		return v
	}
}

// FileBackend persists the profile as a JSON file, writing atomically via a
// temp file and rename.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func (b *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".profile-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, b.Path)
}

// MemoryBackend keeps the profile in memory, for tests and ephemeral runs
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func (b *MemoryBackend) Load(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data, nil
}

func (b *MemoryBackend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}
