package auth

import (
	"context"
	"encoding/json"
	"errors"

	"lenslingua/internal/kv"
	"lenslingua/internal/logging"
)

const usersKey = "users"

// KVRepository stores all accounts as one JSON array under the "users" key.
type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) LoadAll(ctx context.Context) ([]User, error) {
	raw, err := r.store.Get(ctx, usersKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeUsers(ctx, raw), nil
}

func (r *KVRepository) Insert(ctx context.Context, user User) error {
	return r.store.Update(ctx, usersKey, func(current []byte) ([]byte, error) {
		users := decodeUsers(ctx, current)
		for _, u := range users {
			if u.Email == user.Email {
				return nil, ErrDuplicateUser
			}
		}
		return json.MarshalIndent(append(users, user), "", "  ")
	})
}

// decodeUsers treats empty or malformed input as no users.
func decodeUsers(ctx context.Context, raw []byte) []User {
	if len(raw) == 0 {
		return []User{}
	}
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		logging.NewLogger(ctx).Warnf("users collection is malformed, starting fresh: %v", err)
		return []User{}
	}
	return users
}
