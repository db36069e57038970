package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/shopspring/decimal"
)

// PutGroup upserts the group row and rewrites its member list.
func (r *repo) PutGroup(ctx context.Context, group *models.Group) error {
	_, err := r.exec(ctx,
		`INSERT INTO expense_groups (id, name, creator, created_at, settlement_date, status, total_expenses, expense_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   creator = excluded.creator,
		   created_at = excluded.created_at,
		   settlement_date = excluded.settlement_date,
		   status = excluded.status,
		   total_expenses = excluded.total_expenses,
		   expense_count = excluded.expense_count`,
		group.ID, group.Name, group.Creator, group.CreatedAt, group.SettlementDate,
		int(group.Status), group.TotalExpenses.String(), int64(group.ExpenseCount),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}

	if _, err := r.exec(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}
	for i, member := range group.Members {
		_, err := r.exec(ctx,
			"INSERT INTO group_members (group_id, position, member) VALUES (?, ?, ?)",
			group.ID, i, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	return nil
}

// GetGroup retrieves a group by ID, including its members in order.
func (r *repo) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	group := &models.Group{}
	var (
		status int
		total  string
		count  int64
	)
	err := r.queryRow(ctx,
		`SELECT id, name, creator, created_at, settlement_date, status, total_expenses, expense_count
		 FROM expense_groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Creator, &group.CreatedAt, &group.SettlementDate, &status, &total, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Status = models.GroupStatusFromCode(uint8(status))
	group.ExpenseCount = uint32(count)
	if group.TotalExpenses, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total of group %d: %w", groupID, err)
	}

	group.Members, err = r.strings(ctx,
		"SELECT member FROM group_members WHERE group_id = ? ORDER BY position", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	return group, nil
}

func (r *repo) GroupExists(ctx context.Context, groupID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM expense_groups WHERE id = ?", groupID)
}

// DeleteGroup removes a group with its expenses, settlements and index entries.
func (r *repo) DeleteGroup(ctx context.Context, groupID uint64) error {
	ok, err := r.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}

	for _, stmt := range []string{
		"DELETE FROM expense_splits WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)",
		"DELETE FROM group_expenses WHERE group_id = ?",
		"DELETE FROM expenses WHERE group_id = ?",
		"DELETE FROM settlements WHERE group_id = ?",
		"DELETE FROM user_groups WHERE group_id = ?",
		"DELETE FROM group_members WHERE group_id = ?",
		"DELETE FROM expense_groups WHERE id = ?",
	} {
		if _, err := r.exec(ctx, stmt, groupID); err != nil {
			return fmt.Errorf("failed to delete group %d: %w", groupID, err)
		}
	}
	return nil
}

func (r *repo) PendingSettlements(ctx context.Context) ([]storage.PendingSettlement, error) {
	rows, err := r.query(ctx,
		`SELECT id, settlement_date FROM expense_groups
		 WHERE status = ? AND settlement_date > 0 ORDER BY id`,
		int(models.GroupStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending settlements: %w", err)
	}
	defer rows.Close()

	out := []storage.PendingSettlement{}
	for rows.Next() {
		var (
			id int64
			p  storage.PendingSettlement
		)
		if err := rows.Scan(&id, &p.SettlementDate); err != nil {
			return nil, fmt.Errorf("failed to scan pending settlement: %w", err)
		}
		p.GroupID = uint64(id)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending settlements: %w", err)
	}
	return out, nil
}

func (r *repo) UserGroupIDs(ctx context.Context, member string) ([]uint64, error) {
	ids, err := r.ids(ctx, "SELECT group_id FROM user_groups WHERE member = ? ORDER BY seq", member)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of %s: %w", member, err)
	}
	return ids, nil
}

// AddToUserGroups appends groupID to member's index unless already present.
func (r *repo) AddToUserGroups(ctx context.Context, member string, groupID uint64) error {
	_, err := r.exec(ctx,
		`INSERT INTO user_groups (member, group_id, seq)
		 SELECT CAST(? AS TEXT), CAST(? AS BIGINT), COALESCE(MAX(seq), 0) + 1 FROM user_groups WHERE member = ?
		 ON CONFLICT (member, group_id) DO NOTHING`,
		member, groupID, member,
	)
	if err != nil {
		return fmt.Errorf("failed to index group %d for %s: %w", groupID, member, err)
	}
	return nil
}

func (r *repo) RemoveFromUserGroups(ctx context.Context, member string, groupID uint64) error {
	_, err := r.exec(ctx, "DELETE FROM user_groups WHERE member = ? AND group_id = ?", member, groupID)
	if err != nil {
		return fmt.Errorf("failed to unindex group %d for %s: %w", groupID, member, err)
	}
	return nil
}

func (r *repo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.queryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

func (r *repo) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) ids(ctx context.Context, query string, args ...any) ([]uint64, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, uint64(id))
	}
	return out, rows.Err()
}
