package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

// Archive keeps the raw turns that compaction folded into a summary.
type Archive struct {
	db *sql.DB
}

func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) ArchiveTurns(ctx context.Context, conversationID string, turns []core.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO archived_turns (conversation_id, role, content, tool_calls, created_at) VALUES (?, ?, ?, ?, ?)`
	for _, t := range turns {
		calls := ""
		if len(t.ToolCalls) > 0 {
			data, err := json.Marshal(t.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to marshal tool calls: %w", err)
			}
			calls = string(data)
		}

		if _, err := tx.ExecContext(ctx, query, conversationID, t.Role, t.Content, calls, t.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to archive turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("archived turns")
	return nil
}

// ArchivedTurns returns the archived turns of a conversation, oldest first.
// Tool call results come back as generic JSON values.
func (a *Archive) ArchivedTurns(ctx context.Context, conversationID string) ([]core.Turn, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, created_at FROM archived_turns WHERE conversation_id = ? ORDER BY id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var calls string
		if err := rows.Scan(&t.Role, &t.Content, &calls, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if calls != "" {
			if err := json.Unmarshal([]byte(calls), &t.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
