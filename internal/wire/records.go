package wire

import (
	"fmt"

	"github.com/mmynk/fairshare/internal/models"
)

func encodeMembers(members []string) []byte {
	var inner Encoder
	for _, m := range members {
		inner.Str(m)
	}
	return inner.buf
}

func decodeMembers(count uint32, b []byte) ([]string, error) {
	inner := NewDecoder(b)
	members := make([]string, 0, min(int(count), len(b)/4))
	for range count {
		m := inner.Str()
		if inner.Err() != nil {
			break
		}
		members = append(members, m)
	}
	if err := inner.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// EncodeGroup writes id, name, creator, member count, members, createdAt,
// settlementDate, status, totalExpenses and expenseCount.
func EncodeGroup(g *models.Group) ([]byte, error) {
	var e Encoder
	e.U64(g.ID).
		Str(g.Name).
		Str(g.Creator).
		U32(uint32(len(g.Members))).
		Bytes(encodeMembers(g.Members)).
		I64(g.CreatedAt).
		I64(g.SettlementDate).
		U8(uint8(g.Status)).
		U256(g.TotalExpenses).
		U32(g.ExpenseCount)
	return e.Encoded()
}

func DecodeGroup(b []byte) (*models.Group, error) {
	d := NewDecoder(b)
	g := &models.Group{
		ID:      d.U64(),
		Name:    d.Str(),
		Creator: d.Str(),
	}
	count := d.U32()
	raw := d.Bytes()
	g.CreatedAt = d.I64()
	g.SettlementDate = d.I64()
	g.Status = models.GroupStatusFromCode(d.U8())
	g.TotalExpenses = d.U256()
	g.ExpenseCount = d.U32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}

	members, err := decodeMembers(count, raw)
	if err != nil {
		return nil, fmt.Errorf("decode group members: %w", err)
	}
	g.Members = members
	return g, nil
}

// EncodeExpense writes id, groupId, description, amount, paidBy, split count,
// split, createdAt and category.
func EncodeExpense(x *models.Expense) ([]byte, error) {
	var e Encoder
	e.U64(x.ID).
		U64(x.GroupID).
		Str(x.Description).
		U256(x.Amount).
		Str(x.PaidBy).
		U32(uint32(len(x.SplitBetween))).
		Bytes(encodeMembers(x.SplitBetween)).
		I64(x.CreatedAt).
		U8(uint8(x.Category))
	return e.Encoded()
}

func DecodeExpense(b []byte) (*models.Expense, error) {
	d := NewDecoder(b)
	x := &models.Expense{
		ID:          d.U64(),
		GroupID:     d.U64(),
		Description: d.Str(),
		Amount:      d.U256(),
		PaidBy:      d.Str(),
	}
	count := d.U32()
	raw := d.Bytes()
	x.CreatedAt = d.I64()
	x.Category = models.CategoryFromCode(d.U8())
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode expense: %w", err)
	}

	split, err := decodeMembers(count, raw)
	if err != nil {
		return nil, fmt.Errorf("decode expense split: %w", err)
	}
	x.SplitBetween = split
	return x, nil
}

// EncodeSettlement writes id, groupId, from, to, amount and settledAt.
func EncodeSettlement(s *models.Settlement) ([]byte, error) {
	var e Encoder
	e.U64(s.ID).
		U64(s.GroupID).
		Str(s.From).
		Str(s.To).
		U256(s.Amount).
		I64(s.SettledAt)
	return e.Encoded()
}

func DecodeSettlement(b []byte) (*models.Settlement, error) {
	d := NewDecoder(b)
	s := &models.Settlement{
		ID:        d.U64(),
		GroupID:   d.U64(),
		From:      d.Str(),
		To:        d.Str(),
		Amount:    d.U256(),
		SettledAt: d.I64(),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode settlement: %w", err)
	}
	return s, nil
}

// EncodeBalance writes from, to and amount.
func EncodeBalance(b models.Balance) ([]byte, error) {
	var e Encoder
	e.Str(b.From).Str(b.To).U256(b.Amount)
	return e.Encoded()
}

func DecodeBalance(raw []byte) (models.Balance, error) {
	d := NewDecoder(raw)
	b := models.Balance{
		From:   d.Str(),
		To:     d.Str(),
		Amount: d.U256(),
	}
	if err := d.Err(); err != nil {
		return models.Balance{}, fmt.Errorf("decode balance: %w", err)
	}
	return b, nil
}

// EncodeList writes a u32 count followed by each item as a length-prefixed
// record.
func EncodeList[T any](items []T, encode func(T) ([]byte, error)) ([]byte, error) {
	var e Encoder
	e.U32(uint32(len(items)))
	for i, item := range items {
		rec, err := encode(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		e.Bytes(rec)
	}
	return e.Encoded()
}

// DecodeList reverses EncodeList.
func DecodeList[T any](b []byte, decode func([]byte) (T, error)) ([]T, error) {
	d := NewDecoder(b)
	count := d.U32()
	if err := d.Err(); err != nil {
		return nil, err
	}
	items := make([]T, 0, min(int(count), d.Remaining()/4))
	for i := range count {
		rec := d.Bytes()
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		item, err := decode(rec)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// EncodeIDs writes a u32 count followed by each id as a u64.
func EncodeIDs(ids []uint64) []byte {
	var e Encoder
	e.U32(uint32(len(ids)))
	for _, id := range ids {
		e.U64(id)
	}
	return e.buf
}

func DecodeIDs(b []byte) ([]uint64, error) {
	d := NewDecoder(b)
	count := d.U32()
	ids := make([]uint64, 0, min(int(count), d.Remaining()/8))
	for range count {
		ids = append(ids, d.U64())
		if d.Err() != nil {
			break
		}
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Bundle is a group exported together with its history and balances.
type Bundle struct {
	Group       *models.Group
	Expenses    []*models.Expense
	Settlements []*models.Settlement
	Balances    []models.Balance
}

// EncodeBundle writes the group record followed by the expense, settlement
// and balance lists, each length-prefixed.
func EncodeBundle(b *Bundle) ([]byte, error) {
	group, err := EncodeGroup(b.Group)
	if err != nil {
		return nil, err
	}
	expenses, err := EncodeList(b.Expenses, EncodeExpense)
	if err != nil {
		return nil, fmt.Errorf("encode expenses: %w", err)
	}
	settlements, err := EncodeList(b.Settlements, EncodeSettlement)
	if err != nil {
		return nil, fmt.Errorf("encode settlements: %w", err)
	}
	balances, err := EncodeList(b.Balances, EncodeBalance)
	if err != nil {
		return nil, fmt.Errorf("encode balances: %w", err)
	}

	var e Encoder
	e.Bytes(group).Bytes(expenses).Bytes(settlements).Bytes(balances)
	return e.Encoded()
}

func DecodeBundle(raw []byte) (*Bundle, error) {
	d := NewDecoder(raw)
	groupRaw, expensesRaw, settlementsRaw, balancesRaw := d.Bytes(), d.Bytes(), d.Bytes(), d.Bytes()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	var (
		b   Bundle
		err error
	)
	if b.Group, err = DecodeGroup(groupRaw); err != nil {
		return nil, err
	}
	if b.Expenses, err = DecodeList(expensesRaw, DecodeExpense); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	if b.Settlements, err = DecodeList(settlementsRaw, DecodeSettlement); err != nil {
		return nil, fmt.Errorf("decode settlements: %w", err)
	}
	if b.Balances, err = DecodeList(balancesRaw, DecodeBalance); err != nil {
		return nil, fmt.Errorf("decode balances: %w", err)
	}
	return &b, nil
}
