package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

// redisDeviceGroups keeps the element counter in a dedicated key
// (registry:{tenant}:devicegroups:index:{id}) so that INCR gives an atomic
// increment-and-fetch. The counter value is merged into LastIndex on reads.
type redisDeviceGroups struct {
	*docStore[domain.DeviceGroup, *domain.DeviceGroup]
	client   *redis.Client
	elements *redisGroupElements
}

func newRedisDeviceGroups(client *redis.Client, elements *redisGroupElements) *redisDeviceGroups {
	return &redisDeviceGroups{
		docStore: newDocStore[domain.DeviceGroup](client, "devicegroups"),
		client:   client,
		elements: elements,
	}
}

func (s *redisDeviceGroups) indexKey(tenantID, id string) string {
	return fmt.Sprintf("registry:%s:devicegroups:index:%s", tenantID, id)
}

func (s *redisDeviceGroups) mergeIndex(ctx context.Context, tenantID string, g *domain.DeviceGroup) error {
	n, err := s.client.Get(ctx, s.indexKey(tenantID, g.ID)).Int64()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("load group counter: %w", err)
	}
	g.LastIndex = n
	return nil
}

func (s *redisDeviceGroups) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceGroup, error) {
	g, err := s.docStore.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.mergeIndex(ctx, tenantID, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *redisDeviceGroups) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceGroup, error) {
	g, err := s.docStore.GetByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if err := s.mergeIndex(ctx, tenantID, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *redisDeviceGroups) List(ctx context.Context, tenantID string, crit GroupCriteria) ([]*domain.DeviceGroup, int, error) {
	groups, total, err := s.list(ctx, tenantID, crit.SearchCriteria,
		func(g *domain.DeviceGroup) bool {
			if crit.Role == "" {
				return true
			}
			for _, r := range g.Roles {
				if r == crit.Role {
					return true
				}
			}
			return false
		},
		func(a, b *domain.DeviceGroup) bool { return a.Name < b.Name })
	if err != nil {
		return nil, 0, err
	}
	for _, g := range groups {
		if err := s.mergeIndex(ctx, tenantID, g); err != nil {
			return nil, 0, err
		}
	}
	return groups, total, nil
}

func (s *redisDeviceGroups) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceGroup, error) {
	g, err := s.docStore.Delete(ctx, tenantID, id, hard)
	if err != nil {
		return nil, err
	}
	if hard {
		// Hard delete removes owned rows: membership and the counter.
		if err := s.elements.DeleteByGroup(ctx, tenantID, id); err != nil {
			return nil, err
		}
		if err := s.client.Del(ctx, s.indexKey(tenantID, id)).Err(); err != nil {
			return nil, fmt.Errorf("delete group counter: %w", err)
		}
	}
	return g, nil
}

func (s *redisDeviceGroups) NextElementIndex(ctx context.Context, tenantID, groupID string) (int64, error) {
	if _, err := s.docStore.GetByID(ctx, tenantID, groupID); err != nil {
		return 0, err
	}
	n, err := s.client.Incr(ctx, s.indexKey(tenantID, groupID)).Result()
	if err != nil {
		return 0, fmt.Errorf("advance group counter: %w", err)
	}
	return n - 1, nil
}

// redisGroupElements stores membership rows outside the shared document
// store: elements carry no token, removal is always physical and the
// (group, reference) pair is the uniqueness key.
//
//	registry:{tenant}:groupelements:{id}                element document
//	registry:{tenant}:groupelements:group:{gid}:ids     set of element ids
//	registry:{tenant}:groupelements:group:{gid}:members hash ref -> element id
type redisGroupElements struct {
	client *redis.Client
}

func newRedisGroupElements(client *redis.Client) *redisGroupElements {
	return &redisGroupElements{client: client}
}

func (s *redisGroupElements) docKey(tenantID, id string) string {
	return fmt.Sprintf("registry:%s:groupelements:%s", tenantID, id)
}

func (s *redisGroupElements) idsKey(tenantID, groupID string) string {
	return fmt.Sprintf("registry:%s:groupelements:group:%s:ids", tenantID, groupID)
}

func (s *redisGroupElements) membersKey(tenantID, groupID string) string {
	return fmt.Sprintf("registry:%s:groupelements:group:%s:members", tenantID, groupID)
}

func memberField(el *domain.DeviceGroupElement) string {
	if el.DeviceID != "" {
		return "d:" + el.DeviceID
	}
	return "g:" + el.NestedGroupID
}

func (s *redisGroupElements) Insert(ctx context.Context, tenantID string, el *domain.DeviceGroupElement) error {
	ok, err := s.client.HSetNX(ctx, s.membersKey(tenantID, el.GroupID), memberField(el), el.ID).Result()
	if err != nil {
		return fmt.Errorf("reserve group member: %w", err)
	}
	if !ok {
		return ErrDuplicateKey
	}
	body, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("encode group element: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(tenantID, el.ID), body, 0)
		pipe.SAdd(ctx, s.idsKey(tenantID, el.GroupID), el.ID)
		return nil
	})
	if err != nil {
		s.client.HDel(ctx, s.membersKey(tenantID, el.GroupID), memberField(el))
		return fmt.Errorf("store group element: %w", err)
	}
	return nil
}

func (s *redisGroupElements) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error) {
	body, err := s.client.Get(ctx, s.docKey(tenantID, id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load group element: %w", err)
	}
	var el domain.DeviceGroupElement
	if err := json.Unmarshal([]byte(body), &el); err != nil {
		return nil, fmt.Errorf("decode group element: %w", err)
	}
	return &el, nil
}

func (s *redisGroupElements) Delete(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error) {
	el, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(tenantID, id))
		pipe.SRem(ctx, s.idsKey(tenantID, el.GroupID), id)
		pipe.HDel(ctx, s.membersKey(tenantID, el.GroupID), memberField(el))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete group element: %w", err)
	}
	return el, nil
}

func (s *redisGroupElements) ListByGroup(ctx context.Context, tenantID, groupID string, crit SearchCriteria) ([]*domain.DeviceGroupElement, int, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey(tenantID, groupID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list group element ids: %w", err)
	}
	out := []*domain.DeviceGroupElement{}
	if len(ids) == 0 {
		return out, 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(tenantID, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("load group elements: %w", err)
	}
	for _, v := range vals {
		body, ok := v.(string)
		if !ok {
			continue
		}
		var el domain.DeviceGroupElement
		if err := json.Unmarshal([]byte(body), &el); err != nil {
			return nil, 0, fmt.Errorf("decode group element: %w", err)
		}
		out = append(out, &el)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	total := len(out)
	return page(out, crit), total, nil
}

func (s *redisGroupElements) DeleteByGroup(ctx context.Context, tenantID, groupID string) error {
	ids, err := s.client.SMembers(ctx, s.idsKey(tenantID, groupID)).Result()
	if err != nil {
		return fmt.Errorf("list group element ids: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.docKey(tenantID, id))
		}
		pipe.Del(ctx, s.idsKey(tenantID, groupID))
		pipe.Del(ctx, s.membersKey(tenantID, groupID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete group elements: %w", err)
	}
	return nil
}
