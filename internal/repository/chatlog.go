package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tgn-site/internal/domain"
)

// EnsureSession creates the session row if absent, otherwise touches its
// last-activity timestamp. The client address arrives pre-hashed; the raw
// address is never written.
func (s *Store) EnsureSession(ctx context.Context, sessionID, userAgent, clientHash string) error {
	const q = `
		INSERT INTO chat_sessions (id, user_agent, client_hash, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (id) DO UPDATE SET updated_at = now()`

	if _, err := s.db.Exec(ctx, q, sessionID, userAgent, clientHash); err != nil {
		return fmt.Errorf("repository: ensure session %q: %w", sessionID, err)
	}
	return nil
}

// AppendMessage appends one turn to the session log. Sources are serialized
// alongside assistant turns only; pass nil for user turns.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, sources []domain.Source) error {
	var sourcesJSON any
	if len(sources) > 0 {
		raw, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("repository: marshal sources: %w", err)
		}
		sourcesJSON = string(raw)
	}

	const q = `
		INSERT INTO chat_messages (session_id, role, content, sources, created_at)
		VALUES ($1, $2, $3, $4, now())`

	if _, err := s.db.Exec(ctx, q, sessionID, role, content, sourcesJSON); err != nil {
		return fmt.Errorf("repository: append message to %q: %w", sessionID, err)
	}
	return nil
}
