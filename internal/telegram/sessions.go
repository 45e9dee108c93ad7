package telegram

import (
	"context"
	"encoding/json"
	"strconv"

	"lenslingua/internal/kv"
	"lenslingua/internal/logging"
)

const sessionsKey = "telegram_sessions"

// session links a Telegram user to a registered account.
type session struct {
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

// sessionStore keeps logins in the shared KV store so they survive restarts.
type sessionStore struct {
	kv kv.Store
}

func (s *sessionStore) get(ctx context.Context, userID int64) (session, bool) {
	raw, err := s.kv.Get(ctx, sessionsKey)
	if err != nil {
		return session{}, false
	}
	sess, ok := decodeSessions(ctx, raw)[strconv.FormatInt(userID, 10)]
	return sess, ok && sess.Email != ""
}

func (s *sessionStore) set(ctx context.Context, userID int64, sess session) error {
	return s.update(ctx, func(all map[string]session) {
		all[strconv.FormatInt(userID, 10)] = sess
	})
}

func (s *sessionStore) remove(ctx context.Context, userID int64) error {
	return s.update(ctx, func(all map[string]session) {
		delete(all, strconv.FormatInt(userID, 10))
	})
}

func (s *sessionStore) update(ctx context.Context, fn func(map[string]session)) error {
	return s.kv.Update(ctx, sessionsKey, func(current []byte) ([]byte, error) {
		all := decodeSessions(ctx, current)
		fn(all)
		return json.Marshal(all)
	})
}

func decodeSessions(ctx context.Context, raw []byte) map[string]session {
	all := map[string]session{}
	if len(raw) == 0 {
		return all
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		logging.NewLogger(ctx).Warnf("telegram sessions are malformed, starting empty: %v", err)
		return map[string]session{}
	}
	if all == nil {
		all = map[string]session{}
	}
	return all
}
