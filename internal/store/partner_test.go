package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/leadportal/internal/model"
)

func TestPartnerCreate(t *testing.T) {
	ps := NewPartnerStore(setupTestDB(t))
	ctx := context.Background()

	p, err := ps.Create(ctx, NewPartner{
		Email:        "agent@example.com",
		PasswordHash: "hash",
		CompanyName:  "Acme Realty",
		ContactName:  "Sam",
	})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if p.Status != model.PartnerStatusActive || !p.Active() {
		t.Errorf("status = %q, want active", p.Status)
	}
	if p.ContactName == nil || *p.ContactName != "Sam" {
		t.Errorf("contact_name = %v, want Sam", p.ContactName)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at")
	}
}

func TestPartnerCreateDuplicateEmail(t *testing.T) {
	ps := NewPartnerStore(setupTestDB(t))
	ctx := context.Background()

	np := NewPartner{Email: "agent@example.com", PasswordHash: "h", CompanyName: "Acme"}
	if _, err := ps.Create(ctx, np); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := ps.Create(ctx, np)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestPartnerGetByEmail(t *testing.T) {
	ps := NewPartnerStore(setupTestDB(t))
	ctx := context.Background()

	created, _ := ps.Create(ctx, NewPartner{Email: "agent@example.com", PasswordHash: "h", CompanyName: "Acme"})

	p, err := ps.GetByEmail(ctx, "agent@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if p == nil || p.ID != created.ID {
		t.Fatalf("got %+v, want id %d", p, created.ID)
	}
	if p.ContactName != nil {
		t.Errorf("contact_name = %v, want nil", *p.ContactName)
	}

	missing, err := ps.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestPartnerSetStatus(t *testing.T) {
	ps := NewPartnerStore(setupTestDB(t))
	ctx := context.Background()

	p, _ := ps.Create(ctx, NewPartner{Email: "agent@example.com", PasswordHash: "h", CompanyName: "Acme"})
	if err := ps.SetStatus(ctx, p.ID, model.PartnerStatusDisabled); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := ps.GetByID(ctx, p.ID)
	if got.Active() {
		t.Error("expected disabled partner")
	}

	all, err := ps.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len = %d, want 1", len(all))
	}
}
