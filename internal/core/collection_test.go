package core

import (
	"errors"
	"reflect"
	"testing"

	"shardroute/internal/orm"
	"shardroute/internal/shardtest"
	"shardroute/pkg/domain"
)

func TestCollectionCreatePropagatesOwnerShard(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "s2", "owner")
	if err := f.router.Activate(f.ctx, ""); err != nil {
		t.Fatalf("activate: %v", err)
	}
	orders, err := f.router.Collection(acct, "orders")
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	f.env.ResetStatements()

	rec, err := orders.Create(f.ctx, domain.Attributes{"amount": 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order := rec.(*shardtest.Order)
	if order.CurrentShard() != "s2" || order.AccountID != acct.ID || order.ID == 0 {
		t.Fatalf("created order %+v", order)
	}
	f.assertShards(t, "s2")
	if f.env.Count(t, "s2", "orders") != 1 || f.env.Count(t, "", "orders") != 0 {
		t.Fatalf("order written to the wrong shard")
	}
}

func TestCollectionBuildManyPreservesOrder(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "s1", "builder")
	if _, err := f.router.Many(f.ctx, acct, "orders"); err != nil {
		t.Fatalf("load: %v", err)
	}
	orders, _ := f.router.Collection(acct, "orders")
	f.env.ResetStatements()

	recs, err := orders.BuildMany([]domain.Attributes{{"amount": 1}, {"amount": 2}, {"amount": 3}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var amounts []int64
	for _, r := range recs {
		o := r.(*shardtest.Order)
		if o.CurrentShard() != "s1" || o.AccountID != acct.ID || o.ID != 0 {
			t.Fatalf("built order %+v", o)
		}
		amounts = append(amounts, o.Amount)
	}
	if !reflect.DeepEqual(amounts, []int64{1, 2, 3}) {
		t.Fatalf("amounts = %v", amounts)
	}
	if n := len(f.env.Statements()); n != 0 {
		t.Fatalf("build issued %d statements", n)
	}
	if st := acct.Associations().Get("orders"); len(st.Targets) != 3 {
		t.Fatalf("built records not added to loaded collection: %d", len(st.Targets))
	}
}

func TestCollectionCallbackSeesOwnerShardFirst(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "s2", "callback")
	orders, _ := f.router.Collection(acct, "orders")

	var seenShard string
	var seenFK int64 = -1
	rec, err := orders.Create(f.ctx, domain.Attributes{"amount": 4}, func(r domain.Record) {
		o := r.(*shardtest.Order)
		seenShard = o.CurrentShard()
		seenFK = o.AccountID
		o.SetCurrentShard("s1")
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if seenShard != "s2" || seenFK != 0 {
		t.Fatalf("callback saw shard %q fk %d", seenShard, seenFK)
	}
	if rec.(*shardtest.Order).CurrentShard() != "s2" {
		t.Fatalf("create did not re-stamp the owner's shard")
	}
	if f.env.Count(t, "s2", "orders") != 1 || f.env.Count(t, "s1", "orders") != 0 {
		t.Fatalf("callback override leaked the write to s1")
	}

	built, err := orders.Build(nil, func(r domain.Record) { r.(*shardtest.Order).Paid = true })
	if err != nil || !built.(*shardtest.Order).Paid {
		t.Fatalf("build callback not applied: %v", err)
	}
}

func TestCollectionCreateNeedsPersistedOwner(t *testing.T) {
	f := newFixture(t)
	acct := &shardtest.Account{Name: "unsaved"}
	acct.SetCurrentShard("s1")
	orders, _ := f.router.Collection(acct, "orders")

	if _, err := orders.Create(f.ctx, domain.Attributes{"amount": 1}); !errors.Is(err, ErrOwnerNotPersisted) {
		t.Fatalf("expected ErrOwnerNotPersisted, got %v", err)
	}
	if _, err := orders.Build(domain.Attributes{"amount": 1}); err != nil {
		t.Fatalf("build on unsaved owner: %v", err)
	}
}

func TestCollectionCreateValidation(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "s1", "validating")
	orders, _ := f.router.Collection(acct, "orders")

	rec, err := orders.Create(f.ctx, domain.Attributes{"amount": -1})
	if err != nil {
		t.Fatalf("Create(invalid) error = %v, want nil", err)
	}
	if !domain.NewRecord(rec) {
		t.Fatalf("invalid record persisted")
	}

	recs, err := orders.CreateStrictMany(f.ctx, []domain.Attributes{{"amount": 1}, {"amount": -1}, {"amount": 2}})
	var invalid *orm.RecordInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected RecordInvalidError, got %v", err)
	}
	if len(recs) != 1 || f.env.Count(t, "s1", "orders") != 1 {
		t.Fatalf("strict create did not stop at the failure: %d returned", len(recs))
	}
	if _, err := orders.CreateStrict(f.ctx, domain.Attributes{"bogus": 1}); !errors.Is(err, domain.ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestCollectionPlainTargetsFollowOwner(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "s2", "notes-owner")
	if err := f.router.Activate(f.ctx, "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	notes, _ := f.router.Collection(acct, "notes")
	if _, err := notes.CreateMany(f.ctx, []domain.Attributes{{"body": "a"}, {"body": "b"}}); err != nil {
		t.Fatalf("create notes: %v", err)
	}
	if f.env.Count(t, "s2", "notes") != 2 || f.env.Count(t, "s1", "notes") != 0 {
		t.Fatalf("plain targets not written to the owner's shard")
	}
}

func TestCollectionRejectsIndirectAndToOne(t *testing.T) {
	f := newFixture(t)
	acct := &shardtest.Account{Name: "x"}
	for _, name := range []string{"products", "profile"} {
		if _, err := f.router.Collection(acct, name); !errors.Is(err, ErrWrongAssociationKind) {
			t.Fatalf("%s: expected ErrWrongAssociationKind, got %v", name, err)
		}
	}
	if _, err := f.router.Collection(acct, "nope"); !errors.Is(err, ErrUnknownAssociation) {
		t.Fatalf("expected ErrUnknownAssociation, got %v", err)
	}
}
