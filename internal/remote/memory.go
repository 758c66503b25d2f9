package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/google/uuid"
)

type shareKey struct {
	typ      models.Type
	entityID string
	grantee  string
}

// MemoryStore is an in-memory Authority used for offline development and
// tests. SetOffline makes every call fail with ErrRemoteUnavailable, which
// is how tests exercise the no-rollback and divergence paths.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]Document // collection -> id -> doc
	shares  map[shareKey]*models.ShareRecord
	offline bool

	// Creates counts successful Create calls, letting tests assert that a
	// second push of the same entity updates instead of duplicating.
	Creates int
}

func NewMemoryStore() *MemoryStore {
	docs := make(map[string]map[string]Document)
	for _, t := range models.Types() {
		docs[t.Collection()] = make(map[string]Document)
	}
	return &MemoryStore{
		docs:   docs,
		shares: make(map[shareKey]*models.ShareRecord),
	}
}

// SetOffline toggles simulated unreachability.
func (s *MemoryStore) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Ping reports whether the authority is reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	return nil
}

func (s *MemoryStore) check(collection string) (map[string]Document, error) {
	if s.offline {
		return nil, fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	coll, ok := s.docs[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q: %w", collection, common.ErrNotFound)
	}
	return coll, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.check(collection)
	if err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	coll[doc.ID] = doc
	s.Creates++
	return doc.ID, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.check(collection)
	if err != nil {
		return err
	}
	prev, ok := coll[id]
	if !ok || prev.OwnerID != doc.OwnerID {
		return fmt.Errorf("%s id=%s: %w", collection, id, common.ErrNotFound)
	}
	doc.ID = id
	coll[id] = doc
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.check(collection)
	if err != nil {
		return err
	}
	delete(coll, id)
	return nil
}

func (s *MemoryStore) QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.check(collection)
	if err != nil {
		return nil, err
	}
	var result []Document
	for _, d := range coll {
		if matchField(d, field, fmt.Sprint(value)) {
			result = append(result, d)
		}
	}
	sortDocs(result)
	return result, nil
}

func (s *MemoryStore) QueryWhereIn(ctx context.Context, collection, field string, values []string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.check(collection)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(values))
	for _, v := range values {
		wanted[v] = struct{}{}
	}
	var result []Document
	for _, d := range coll {
		switch field {
		case "id":
			if _, ok := wanted[d.ID]; ok {
				result = append(result, d)
			}
		case "owner_id":
			if _, ok := wanted[d.OwnerID]; ok {
				result = append(result, d)
			}
		}
	}
	sortDocs(result)
	return result, nil
}

// matchField mirrors the Postgres store's field addressing: indexed columns
// by name, anything else unsupported here (the memory double stores opaque
// payloads).
func matchField(d Document, field, value string) bool {
	switch field {
	case "id":
		return d.ID == value
	case "owner_id":
		return d.OwnerID == value
	default:
		return false
	}
}

func sortDocs(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.Before(docs[j].UpdatedAt)
	})
}

func (s *MemoryStore) CreateShare(ctx context.Context, rec *models.ShareRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	cp := *rec
	s.shares[shareKey{rec.EntityType, rec.EntityID, rec.GranteeEmail}] = &cp
	return nil
}

func (s *MemoryStore) GetShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) (*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return nil, fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	rec, ok := s.shares[shareKey{typ, entityID, granteeEmail}]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) SharesForGrantee(ctx context.Context, granteeEmail string) ([]*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return nil, fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	var result []*models.ShareRecord
	for k, rec := range s.shares {
		if k.grantee == granteeEmail {
			cp := *rec
			result = append(result, &cp)
		}
	}
	sortShares(result)
	return result, nil
}

func (s *MemoryStore) SharesForEntity(ctx context.Context, typ models.Type, entityID string) ([]*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return nil, fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	var result []*models.ShareRecord
	for k, rec := range s.shares {
		if k.typ == typ && k.entityID == entityID {
			cp := *rec
			result = append(result, &cp)
		}
	}
	sortShares(result)
	return result, nil
}

func sortShares(recs []*models.ShareRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].GranteeEmail < recs[j].GranteeEmail
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}

func (s *MemoryStore) UpdateShareStatus(ctx context.Context, typ models.Type, entityID, granteeEmail string, status models.ShareStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	rec, ok := s.shares[shareKey{typ, entityID, granteeEmail}]
	if !ok {
		return common.ErrNotFound
	}
	rec.Status = status
	return nil
}

func (s *MemoryStore) DeleteShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	k := shareKey{typ, entityID, granteeEmail}
	if _, ok := s.shares[k]; !ok {
		return common.ErrNotFound
	}
	delete(s.shares, k)
	return nil
}

func (s *MemoryStore) DeleteSharesForEntity(ctx context.Context, typ models.Type, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return fmt.Errorf("memory store: %w", common.ErrRemoteUnavailable)
	}
	for k := range s.shares {
		if k.typ == typ && k.entityID == entityID {
			delete(s.shares, k)
		}
	}
	return nil
}
