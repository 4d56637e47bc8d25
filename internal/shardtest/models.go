// Package shardtest provides record fixtures and per-shard SQLite databases
// for routing tests.
package shardtest

import (
	"errors"

	"shardroute/pkg/domain"
)

// Account is a shard-aware owner record.
type Account struct {
	domain.Base
	domain.Sharded
	Name    string
	Balance int64
	Active  bool
}

// TableName implements domain.Record.
func (a *Account) TableName() string { return "accounts" }

// Fields implements domain.Record.
func (a *Account) Fields() []domain.Field {
	return []domain.Field{
		{Column: "name", Ptr: &a.Name},
		{Column: "balance", Ptr: &a.Balance},
		{Column: "active", Ptr: &a.Active},
	}
}

// Validate rejects accounts without a name.
func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// Order belongs to an account and optionally to a product.
type Order struct {
	domain.Base
	domain.Sharded
	AccountID int64
	ProductID *int64
	Amount    int64
	Paid      bool
}

// TableName implements domain.Record.
func (o *Order) TableName() string { return "orders" }

// Fields implements domain.Record.
func (o *Order) Fields() []domain.Field {
	return []domain.Field{
		{Column: "account_id", Ptr: &o.AccountID},
		{Column: "product_id", Ptr: &o.ProductID},
		{Column: "amount", Ptr: &o.Amount},
		{Column: "paid", Ptr: &o.Paid},
	}
}

// Validate rejects negative amounts.
func (o *Order) Validate() error {
	if o.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}

// Product is reachable from accounts through orders.
type Product struct {
	domain.Base
	domain.Sharded
	SKU string
}

// TableName implements domain.Record.
func (p *Product) TableName() string { return "products" }

// Fields implements domain.Record.
func (p *Product) Fields() []domain.Field {
	return []domain.Field{{Column: "sku", Ptr: &p.SKU}}
}

// LineItem belongs to an order.
type LineItem struct {
	domain.Base
	domain.Sharded
	OrderID  int64
	Quantity int
}

// TableName implements domain.Record.
func (l *LineItem) TableName() string { return "line_items" }

// Fields implements domain.Record.
func (l *LineItem) Fields() []domain.Field {
	return []domain.Field{
		{Column: "order_id", Ptr: &l.OrderID},
		{Column: "quantity", Ptr: &l.Quantity},
	}
}

// Profile is the has-one side of an account.
type Profile struct {
	domain.Base
	domain.Sharded
	AccountID *int64
	Bio       string
}

// TableName implements domain.Record.
func (p *Profile) TableName() string { return "profiles" }

// Fields implements domain.Record.
func (p *Profile) Fields() []domain.Field {
	return []domain.Field{
		{Column: "account_id", Ptr: &p.AccountID},
		{Column: "bio", Ptr: &p.Bio},
	}
}

// Note is a plain record type without shard capability.
type Note struct {
	domain.Base
	AccountID int64
	Body      string
	Pinned    bool
	Votes     int64
}

// TableName implements domain.Record.
func (n *Note) TableName() string { return "notes" }

// Fields implements domain.Record.
func (n *Note) Fields() []domain.Field {
	return []domain.Field{
		{Column: "account_id", Ptr: &n.AccountID},
		{Column: "body", Ptr: &n.Body},
		{Column: "pinned", Ptr: &n.Pinned},
		{Column: "votes", Ptr: &n.Votes},
	}
}

func newAccount() domain.Record  { return &Account{} }
func newOrder() domain.Record    { return &Order{} }
func newProduct() domain.Record  { return &Product{} }
func newLineItem() domain.Record { return &LineItem{} }
func newProfile() domain.Record  { return &Profile{} }
func newNote() domain.Record     { return &Note{} }

// AccountAssociations describes every relationship of Account.
func AccountAssociations() []domain.Association {
	return []domain.Association{
		{Name: "orders", Kind: domain.HasMany, Target: newOrder, ForeignKey: "account_id"},
		{Name: "notes", Kind: domain.HasMany, Target: newNote, ForeignKey: "account_id"},
		{Name: "profile", Kind: domain.HasOne, Target: newProfile, ForeignKey: "account_id"},
		{Name: "products", Kind: domain.HasMany, Target: newProduct, Through: "orders", Source: "product"},
		{Name: "line_items", Kind: domain.HasMany, Target: newLineItem, Through: "orders", Source: "line_items"},
		{
			Name:       "big_orders",
			Kind:       domain.HasMany,
			Target:     newOrder,
			ForeignKey: "account_id",
			FinderSQL:  "SELECT id, account_id, product_id, amount, paid FROM orders WHERE account_id = ? AND amount >= 100 ORDER BY id",
		},
	}
}

// OrderAssociations describes every relationship of Order.
func OrderAssociations() []domain.Association {
	return []domain.Association{
		{Name: "account", Kind: domain.BelongsTo, Target: newAccount, ForeignKey: "account_id"},
		{Name: "product", Kind: domain.BelongsTo, Target: newProduct, ForeignKey: "product_id"},
		{Name: "line_items", Kind: domain.HasMany, Target: newLineItem, ForeignKey: "order_id"},
	}
}

// NoteAssociations describes the relationships of the plain Note type.
func NoteAssociations() []domain.Association {
	return []domain.Association{
		{Name: "account", Kind: domain.BelongsTo, Target: newAccount, ForeignKey: "account_id"},
	}
}

// NewAccount, NewOrder, and friends are constructors usable as association targets.
var (
	NewAccount  = newAccount
	NewOrder    = newOrder
	NewProduct  = newProduct
	NewLineItem = newLineItem
	NewProfile  = newProfile
	NewNote     = newNote
)
