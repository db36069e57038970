package sqlite

import "database/sql"

// schema sets up the ledger tables. It runs on startup to ensure tables exist.
// Amounts are stored as base-10 TEXT since they may exceed 64 bits.
// IMPORTANT: expense_groups must be created BEFORE the tables that reference it.
const schema = `
CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_groups (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    creator TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    settlement_date INTEGER NOT NULL,
    status INTEGER NOT NULL,
    total_expenses TEXT NOT NULL,
    expense_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, member),
    FOREIGN KEY (group_id) REFERENCES expense_groups(id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id INTEGER PRIMARY KEY,
    group_id INTEGER NOT NULL,
    description TEXT NOT NULL,
    amount TEXT NOT NULL,
    paid_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    category INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES expense_groups(id)
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (expense_id, position),
    FOREIGN KEY (expense_id) REFERENCES expenses(id)
);

CREATE TABLE IF NOT EXISTS group_expenses (
    group_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    expense_id INTEGER NOT NULL,
    PRIMARY KEY (group_id, seq)
);

CREATE TABLE IF NOT EXISTS user_groups (
    member TEXT NOT NULL,
    group_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    PRIMARY KEY (member, group_id)
);

CREATE TABLE IF NOT EXISTS settlements (
    id INTEGER PRIMARY KEY,
    group_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    from_member TEXT NOT NULL,
    to_member TEXT NOT NULL,
    amount TEXT NOT NULL,
    settled_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES expense_groups(id)
);

CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_group_expenses_expense_id ON group_expenses(expense_id);
CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id, seq);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
