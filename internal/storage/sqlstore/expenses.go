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

// PutExpense upserts the expense row and rewrites its split list.
func (r *repo) PutExpense(ctx context.Context, expense *models.Expense) error {
	_, err := r.exec(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, created_at, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   group_id = excluded.group_id,
		   description = excluded.description,
		   amount = excluded.amount,
		   paid_by = excluded.paid_by,
		   created_at = excluded.created_at,
		   category = excluded.category`,
		expense.ID, expense.GroupID, expense.Description, expense.Amount.String(),
		expense.PaidBy, expense.CreatedAt, int(expense.Category),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}

	if _, err := r.exec(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear expense split: %w", err)
	}
	for i, member := range expense.SplitBetween {
		_, err := r.exec(ctx,
			"INSERT INTO expense_splits (expense_id, position, member) VALUES (?, ?, ?)",
			expense.ID, i, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}

	return nil
}

const expenseColumns = "id, group_id, description, amount, paid_by, created_at, category"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var (
		amount   string
		category int
	)
	if err := row.Scan(&expense.ID, &expense.GroupID, &expense.Description, &amount,
		&expense.PaidBy, &expense.CreatedAt, &category); err != nil {
		return nil, err
	}

	var err error
	if expense.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount of expense %d: %w", expense.ID, err)
	}
	expense.Category = models.CategoryFromCode(uint8(category))
	return expense, nil
}

func (r *repo) loadSplit(ctx context.Context, expense *models.Expense) error {
	split, err := r.strings(ctx,
		"SELECT member FROM expense_splits WHERE expense_id = ? ORDER BY position", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get split of expense %d: %w", expense.ID, err)
	}
	expense.SplitBetween = split
	return nil
}

// GetExpense retrieves an expense by ID, including its split.
func (r *repo) GetExpense(ctx context.Context, expenseID uint64) (*models.Expense, error) {
	expense, err := scanExpense(r.queryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if err := r.loadSplit(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (r *repo) ExpenseExists(ctx context.Context, expenseID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM expenses WHERE id = ?", expenseID)
}

// DeleteExpense removes an expense, its split and its group index entry.
func (r *repo) DeleteExpense(ctx context.Context, expenseID uint64) error {
	ok, err := r.ExpenseExists(ctx, expenseID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}

	for _, stmt := range []string{
		"DELETE FROM expense_splits WHERE expense_id = ?",
		"DELETE FROM group_expenses WHERE expense_id = ?",
		"DELETE FROM expenses WHERE id = ?",
	} {
		if _, err := r.exec(ctx, stmt, expenseID); err != nil {
			return fmt.Errorf("failed to delete expense %d: %w", expenseID, err)
		}
	}
	return nil
}

func (r *repo) GroupExpenseIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	ids, err := r.ids(ctx, "SELECT expense_id FROM group_expenses WHERE group_id = ? ORDER BY seq", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses of group %d: %w", groupID, err)
	}
	return ids, nil
}

// GroupExpenses returns the group's expenses in index order.
func (r *repo) GroupExpenses(ctx context.Context, groupID uint64) ([]*models.Expense, error) {
	rows, err := r.query(ctx,
		`SELECT e.id, e.group_id, e.description, e.amount, e.paid_by, e.created_at, e.category
		 FROM group_expenses ge JOIN expenses e ON e.id = ge.expense_id
		 WHERE ge.group_id = ? ORDER BY ge.seq`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses of group %d: %w", groupID, err)
	}

	expenses := []*models.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	// One open result set per connection: splits are read after the cursor closes.
	for _, expense := range expenses {
		if err := r.loadSplit(ctx, expense); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (r *repo) AddToGroupExpenses(ctx context.Context, groupID, expenseID uint64) error {
	_, err := r.exec(ctx,
		`INSERT INTO group_expenses (group_id, seq, expense_id)
		 SELECT CAST(? AS BIGINT), COALESCE(MAX(seq), 0) + 1, CAST(? AS BIGINT) FROM group_expenses WHERE group_id = ?`,
		groupID, expenseID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to index expense %d: %w", expenseID, err)
	}
	return nil
}

func (r *repo) RemoveFromGroupExpenses(ctx context.Context, groupID, expenseID uint64) error {
	_, err := r.exec(ctx, "DELETE FROM group_expenses WHERE group_id = ? AND expense_id = ?", groupID, expenseID)
	if err != nil {
		return fmt.Errorf("failed to unindex expense %d: %w", expenseID, err)
	}
	return nil
}
