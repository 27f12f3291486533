package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

// The document backend stores one JSON document per record:
//
//	registry:{tenant}:{collection}:{id}          record document
//	registry:{tenant}:{collection}:ids           set of record ids
//	registry:{tenant}:{collection}:tokens        hash token -> id
//
// Uniqueness is enforced with HSETNX on the token hash (and on extra
// per-collection hashes for composite keys), which is atomic on the
// server. Soft delete keeps the document but removes the index entry, so
// uniqueness applies to live records only — matching the partial unique
// indexes of the relational backend.

type record[T any] interface {
	*T
	GetID() string
	GetToken() string
	IsDeleted() bool
	MarkDeleted()
}

type docStore[T any, PT record[T]] struct {
	client *redis.Client
	coll   string
}

func newDocStore[T any, PT record[T]](client *redis.Client, coll string) *docStore[T, PT] {
	return &docStore[T, PT]{client: client, coll: coll}
}

func (s *docStore[T, PT]) docKey(tenantID, id string) string {
	return fmt.Sprintf("registry:%s:%s:%s", tenantID, s.coll, id)
}

func (s *docStore[T, PT]) idsKey(tenantID string) string {
	return fmt.Sprintf("registry:%s:%s:ids", tenantID, s.coll)
}

func (s *docStore[T, PT]) tokensKey(tenantID string) string {
	return fmt.Sprintf("registry:%s:%s:tokens", tenantID, s.coll)
}

func (s *docStore[T, PT]) Insert(ctx context.Context, tenantID string, rec *T) error {
	pr := PT(rec)
	id := pr.GetID()
	token := pr.GetToken()

	if token != "" {
		ok, err := s.client.HSetNX(ctx, s.tokensKey(tenantID), token, id).Result()
		if err != nil {
			return fmt.Errorf("reserve token: %w", err)
		}
		if !ok {
			return ErrDuplicateKey
		}
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", s.coll, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(tenantID, id), body, 0)
		pipe.SAdd(ctx, s.idsKey(tenantID), id)
		return nil
	})
	if err != nil {
		if token != "" {
			s.client.HDel(ctx, s.tokensKey(tenantID), token)
		}
		return fmt.Errorf("store %s document: %w", s.coll, err)
	}
	return nil
}

func (s *docStore[T, PT]) GetByID(ctx context.Context, tenantID, id string) (*T, error) {
	body, err := s.client.Get(ctx, s.docKey(tenantID, id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s document: %w", s.coll, err)
	}
	var rec T
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", s.coll, err)
	}
	if PT(&rec).IsDeleted() {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *docStore[T, PT]) GetByToken(ctx context.Context, tenantID, token string) (*T, error) {
	id, err := s.client.HGet(ctx, s.tokensKey(tenantID), token).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s token: %w", s.coll, err)
	}
	return s.GetByID(ctx, tenantID, id)
}

func (s *docStore[T, PT]) Update(ctx context.Context, tenantID string, rec *T) error {
	id := PT(rec).GetID()
	if _, err := s.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", s.coll, err)
	}
	if err := s.client.Set(ctx, s.docKey(tenantID, id), body, 0).Err(); err != nil {
		return fmt.Errorf("store %s document: %w", s.coll, err)
	}
	return nil
}

func (s *docStore[T, PT]) Delete(ctx context.Context, tenantID, id string, hard bool) (*T, error) {
	rec, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	token := PT(rec).GetToken()

	if hard {
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.docKey(tenantID, id))
			pipe.SRem(ctx, s.idsKey(tenantID), id)
			if token != "" {
				pipe.HDel(ctx, s.tokensKey(tenantID), token)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("delete %s document: %w", s.coll, err)
		}
		return rec, nil
	}

	PT(rec).MarkDeleted()
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", s.coll, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(tenantID, id), body, 0)
		if token != "" {
			// Soft delete releases the token for reuse by live records.
			pipe.HDel(ctx, s.tokensKey(tenantID), token)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark %s document deleted: %w", s.coll, err)
	}
	return rec, nil
}

// list loads the full collection, filters, sorts and pages in memory.
// Registry collections are small enough that this mirrors what the
// relational backend does with a WHERE clause.
func (s *docStore[T, PT]) list(ctx context.Context, tenantID string, crit SearchCriteria,
	match func(*T) bool, less func(*T, *T) bool) ([]*T, int, error) {

	ids, err := s.client.SMembers(ctx, s.idsKey(tenantID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list %s ids: %w", s.coll, err)
	}
	out := []*T{}
	if len(ids) == 0 {
		return out, 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(tenantID, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("load %s documents: %w", s.coll, err)
	}
	for _, v := range vals {
		body, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, 0, fmt.Errorf("decode %s document: %w", s.coll, err)
		}
		if PT(&rec).IsDeleted() && !crit.IncludeDeleted {
			continue
		}
		if match != nil && !match(&rec) {
			continue
		}
		out = append(out, &rec)
	}
	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	total := len(out)
	return page(out, crit), total, nil
}

func page[T any](items []T, crit SearchCriteria) []T {
	if crit.PageSize <= 0 {
		return items
	}
	p := crit.Page
	if p <= 0 {
		p = 1
	}
	start := (p - 1) * crit.PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + crit.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
