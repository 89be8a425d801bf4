package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dukerupert/leadportal/internal/model"
)

func TestSubmissionCreate(t *testing.T) {
	ss := NewSubmissionStore(setupTestDB(t))
	ctx := context.Background()

	sub, err := ss.Create(ctx, model.SubmissionKindPartnerApplication, "agent@example.com", map[string]string{
		"company_name": "Acme",
		"message":      "We move families to Idaho",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.ID == 0 || sub.Kind != model.SubmissionKindPartnerApplication {
		t.Errorf("submission = %+v", sub)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(sub.Payload), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["company_name"] != "Acme" {
		t.Errorf("payload = %v", payload)
	}

	list, err := ss.ListByKind(ctx, model.SubmissionKindPartnerApplication, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}
