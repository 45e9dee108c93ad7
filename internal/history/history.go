// Package history keeps every user's saved extraction results in one shared
// collection stored under the "history" key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"lenslingua/internal/kv"
	"lenslingua/internal/logging"
	"lenslingua/internal/model"
)

const historyKey = "history"

var ErrInvalidRecord = errors.New("invalid history record")

type Item struct {
	ID             string                `json:"id"`
	OwnerEmail     string                `json:"ownerEmail"`
	Kind           model.Kind            `json:"kind"`
	CreatedAt      time.Time             `json:"createdAt"`
	TargetLanguage string                `json:"targetLanguage"`
	Items          []model.ExtractedItem `json:"items"`
}

type Store struct {
	kv    kv.Store
	now   func() time.Time
	newID func() string
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store, now: time.Now, newID: NewID}
}

// Save appends a record owned by the normalized email and returns its id.
func (s *Store) Save(ctx context.Context, ownerEmail string, kind model.Kind, targetLanguage string, items []model.ExtractedItem) (string, error) {
	owner := model.NormalizeEmail(ownerEmail)
	if owner == "" {
		return "", fmt.Errorf("%w: owner email is required", ErrInvalidRecord)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, kind)
	}

	var id string
	err := s.kv.Update(ctx, historyKey, func(current []byte) ([]byte, error) {
		records := decode(ctx, current)
		taken := make(map[string]struct{}, len(records))
		for _, r := range records {
			taken[r.ID] = struct{}{}
		}
		id = s.newID()
		for {
			if _, dup := taken[id]; !dup {
				break
			}
			id = s.newID()
		}
		records = append(records, Item{
			ID:             id,
			OwnerEmail:     owner,
			Kind:           kind,
			CreatedAt:      s.now().UTC(),
			TargetLanguage: targetLanguage,
			Items:          append([]model.ExtractedItem(nil), items...),
		})
		return encode(records)
	})
	if err != nil {
		return "", fmt.Errorf("save history: %w", err)
	}
	return id, nil
}

// ListForUser returns the user's records, newest first. Records with equal
// timestamps come back in reverse save order.
func (s *Store) ListForUser(ctx context.Context, email string) []Item {
	owner := model.NormalizeEmail(email)
	records := s.load(ctx)
	out := make([]Item, 0)
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].OwnerEmail == owner {
			out = append(out, records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get returns one record owned by email.
func (s *Store) Get(ctx context.Context, email, id string) (Item, bool) {
	owner := model.NormalizeEmail(email)
	for _, r := range s.load(ctx) {
		if r.ID == id && r.OwnerEmail == owner {
			return r, true
		}
	}
	return Item{}, false
}

func (s *Store) ClearForUser(ctx context.Context, email string) error {
	owner := model.NormalizeEmail(email)
	return s.remove(ctx, func(r Item) bool { return r.OwnerEmail == owner })
}

// DeleteOne removes the record only if both id and owner match. Deleting a
// missing record is not an error.
func (s *Store) DeleteOne(ctx context.Context, email, id string) error {
	owner := model.NormalizeEmail(email)
	return s.remove(ctx, func(r Item) bool { return r.ID == id && r.OwnerEmail == owner })
}

// Prune keeps at most maxPerUser newest records per owner and drops records
// created before olderThan. Zero values disable the matching rule.
func (s *Store) Prune(ctx context.Context, maxPerUser int, olderThan time.Time) (int, error) {
	removed := 0
	err := s.kv.Update(ctx, historyKey, func(current []byte) ([]byte, error) {
		records := decode(ctx, current)
		removed = 0

		keep := make([]bool, len(records))
		perOwner := make(map[string][]int)
		for i, r := range records {
			if !olderThan.IsZero() && r.CreatedAt.Before(olderThan) {
				continue
			}
			keep[i] = true
			perOwner[r.OwnerEmail] = append(perOwner[r.OwnerEmail], i)
		}
		if maxPerUser > 0 {
			for _, idx := range perOwner {
				if len(idx) <= maxPerUser {
					continue
				}
				sort.SliceStable(idx, func(a, b int) bool {
					ra, rb := records[idx[a]], records[idx[b]]
					if ra.CreatedAt.Equal(rb.CreatedAt) {
						return idx[a] > idx[b]
					}
					return ra.CreatedAt.After(rb.CreatedAt)
				})
				for _, i := range idx[maxPerUser:] {
					keep[i] = false
				}
			}
		}

		out := make([]Item, 0, len(records))
		for i, r := range records {
			if keep[i] {
				out = append(out, r)
			} else {
				removed++
			}
		}
		if removed == 0 {
			return current, nil
		}
		return encode(out)
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return removed, nil
}

func (s *Store) remove(ctx context.Context, match func(Item) bool) error {
	err := s.kv.Update(ctx, historyKey, func(current []byte) ([]byte, error) {
		records := decode(ctx, current)
		out := make([]Item, 0, len(records))
		for _, r := range records {
			if !match(r) {
				out = append(out, r)
			}
		}
		if len(out) == len(records) && current != nil {
			return current, nil
		}
		return encode(out)
	})
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) []Item {
	raw, err := s.kv.Get(ctx, historyKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			logging.NewLogger(ctx).Warnf("read history: %v", err)
		}
		return []Item{}
	}
	return decode(ctx, raw)
}

// decode treats empty or malformed input as an empty collection.
func decode(ctx context.Context, raw []byte) []Item {
	if len(raw) == 0 {
		return []Item{}
	}
	var records []Item
	if err := json.Unmarshal(raw, &records); err != nil {
		logging.NewLogger(ctx).Warnf("history collection is malformed, treating as empty: %v", err)
		return []Item{}
	}
	return records
}

func encode(records []Item) ([]byte, error) {
	return json.Marshal(records)
}
