package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestInviteCreate(t *testing.T) {
	is := NewInviteStore(setupTestDB(t))
	ctx := context.Background()

	exp := testNow.Add(14 * 24 * time.Hour)
	inv, err := is.Create(ctx, "partner@example.com", exp)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if len(inv.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(inv.Token))
	}
	if !inv.ExpiresAt.Equal(exp) {
		t.Errorf("expires_at = %v, want %v", inv.ExpiresAt, exp)
	}
	if inv.Used() {
		t.Error("new invite should be unused")
	}

	got, err := is.GetByToken(ctx, inv.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.ID != inv.ID {
		t.Fatalf("got %+v, want id %d", got, inv.ID)
	}

	missing, err := is.GetByToken(ctx, "deadbeef")
	if err != nil || missing != nil {
		t.Errorf("missing = %+v, %v; want nil, nil", missing, err)
	}
}

func TestInviteTokensUnique(t *testing.T) {
	is := NewInviteStore(setupTestDB(t))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		inv, err := is.Create(ctx, "p@example.com", testNow.Add(time.Hour))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[inv.Token] {
			t.Fatalf("duplicate token %s", inv.Token)
		}
		seen[inv.Token] = true
	}

	recent, err := is.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 5 {
		t.Errorf("len = %d, want 5", len(recent))
	}
}

func TestInviteRedeem(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ps := NewPartnerStore(db)
	ctx := context.Background()

	inv, _ := is.Create(ctx, "partner@example.com", testNow.Add(24*time.Hour))

	p, err := is.Redeem(ctx, inv.ID, testNow, NewPartner{Email: "partner@example.com", PasswordHash: "h", CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if p.Email != "partner@example.com" {
		t.Errorf("email = %q", p.Email)
	}

	got, _ := is.GetByID(ctx, inv.ID)
	if !got.Used() {
		t.Error("expected invite marked used")
	}

	_, err = is.Redeem(ctx, inv.ID, testNow, NewPartner{Email: "other@example.com", PasswordHash: "h", CompanyName: "Other"})
	if !errors.Is(err, ErrInviteUnavailable) {
		t.Errorf("second redeem err = %v, want ErrInviteUnavailable", err)
	}
	if other, _ := ps.GetByEmail(ctx, "other@example.com"); other != nil {
		t.Error("second redeem must not create a partner")
	}
}

func TestInviteRedeemExpired(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ps := NewPartnerStore(db)
	ctx := context.Background()

	inv, _ := is.Create(ctx, "partner@example.com", testNow.Add(-time.Minute))

	_, err := is.Redeem(ctx, inv.ID, testNow, NewPartner{Email: "partner@example.com", PasswordHash: "h", CompanyName: "Acme"})
	if !errors.Is(err, ErrInviteUnavailable) {
		t.Fatalf("err = %v, want ErrInviteUnavailable", err)
	}
	if p, _ := ps.GetByEmail(ctx, "partner@example.com"); p != nil {
		t.Error("expired invite must not create a partner")
	}
}

func TestInviteRedeemDuplicateEmailRollsBack(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ps := NewPartnerStore(db)
	ctx := context.Background()

	ps.Create(ctx, NewPartner{Email: "partner@example.com", PasswordHash: "h", CompanyName: "Existing"})
	inv, _ := is.Create(ctx, "partner@example.com", testNow.Add(time.Hour))

	_, err := is.Redeem(ctx, inv.ID, testNow, NewPartner{Email: "partner@example.com", PasswordHash: "h", CompanyName: "Acme"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	got, _ := is.GetByID(ctx, inv.ID)
	if got.Used() {
		t.Error("invite must stay unused after rollback")
	}
}

func TestInviteRedeemConcurrent(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ctx := context.Background()

	inv, _ := is.Create(ctx, "partner@example.com", testNow.Add(time.Hour))

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := is.Redeem(ctx, inv.ID, testNow, NewPartner{Email: "partner@example.com", PasswordHash: "h", CompanyName: "Acme"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	var count int
	db.Get(&count, `SELECT COUNT(*) FROM partners`)
	if count != 1 {
		t.Errorf("partners = %d, want 1", count)
	}
}

func TestInviteDeleteExpired(t *testing.T) {
	is := NewInviteStore(setupTestDB(t))
	ctx := context.Background()

	is.Create(ctx, "old@example.com", testNow.Add(-time.Hour))
	keep, _ := is.Create(ctx, "new@example.com", testNow.Add(time.Hour))

	n, err := is.DeleteExpired(ctx, testNow)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if got, _ := is.GetByID(ctx, keep.ID); got == nil {
		t.Error("unexpired invite was deleted")
	}
}
