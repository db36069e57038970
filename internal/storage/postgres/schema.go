package postgres

// NUMERIC(78,0) holds every unsigned 256-bit amount.
const schema = `
CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_groups (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    creator TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    settlement_date BIGINT NOT NULL,
    status SMALLINT NOT NULL,
    total_expenses NUMERIC(78,0) NOT NULL,
    expense_count BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id BIGINT NOT NULL REFERENCES expense_groups(id),
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, member)
);

CREATE TABLE IF NOT EXISTS expenses (
    id BIGINT PRIMARY KEY,
    group_id BIGINT NOT NULL REFERENCES expense_groups(id),
    description TEXT NOT NULL,
    amount NUMERIC(78,0) NOT NULL,
    paid_by TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    category SMALLINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id BIGINT NOT NULL REFERENCES expenses(id),
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (expense_id, position)
);

CREATE TABLE IF NOT EXISTS group_expenses (
    group_id BIGINT NOT NULL,
    seq BIGINT NOT NULL,
    expense_id BIGINT NOT NULL,
    PRIMARY KEY (group_id, seq)
);

CREATE TABLE IF NOT EXISTS user_groups (
    member TEXT NOT NULL,
    group_id BIGINT NOT NULL,
    seq BIGINT NOT NULL,
    PRIMARY KEY (member, group_id)
);

CREATE TABLE IF NOT EXISTS settlements (
    id BIGINT PRIMARY KEY,
    group_id BIGINT NOT NULL REFERENCES expense_groups(id),
    seq BIGINT NOT NULL,
    from_member TEXT NOT NULL,
    to_member TEXT NOT NULL,
    amount NUMERIC(78,0) NOT NULL,
    settled_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_group_expenses_expense_id ON group_expenses(expense_id);
CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id, seq);
`
