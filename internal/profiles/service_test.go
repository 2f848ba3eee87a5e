package profiles

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage/memory"
	"freight-service/pkg/filestore"
	"freight-service/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	files, err := filestore.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	return NewService(store, files, events.NewLocal(), logger.NewNop()), store
}

func addUser(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	u := &domain.User{ID: id, Phone: "+99890" + id, FullName: "User " + id, DateJoined: time.Now()}
	if err := store.User().Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
}

func docs(names ...string) []Upload {
	var out []Upload
	for _, n := range names {
		out = append(out, Upload{Filename: n, Content: strings.NewReader("scan of " + n)})
	}
	return out
}

var staff = domain.Principal{UserID: "staff", IsStaff: true}

func TestRequestVerificationValidation(t *testing.T) {
	svc, store := newTestService(t)
	addUser(t, store, "u1")
	ctx := context.Background()

	if _, err := svc.RequestVerification(ctx, "u1", "pilot", docs("a.pdf")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("unknown role: got %v", err)
	}
	if _, err := svc.RequestVerification(ctx, "u1", "", docs("a.pdf")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("empty role: got %v", err)
	}
	if _, err := svc.RequestVerification(ctx, "u1", "driver", nil); !errors.Is(err, domain.ErrMissingDocuments) {
		t.Fatalf("no documents: got %v", err)
	}
	if _, err := store.Profile().Get(ctx, "u1", domain.RoleDriver); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed request must not create a profile, got %v", err)
	}
}

func TestVerificationLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	addUser(t, store, "u1")
	ctx := context.Background()

	p, err := svc.RequestVerification(ctx, "u1", "D", docs("license.pdf", "passport.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != domain.RoleDriver || p.State != domain.VerificationPending || len(p.Documents) != 2 {
		t.Fatalf("unexpected profile %+v", p)
	}

	if _, err := svc.Approve(ctx, domain.Principal{UserID: "u1"}, domain.RoleDriver, p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-staff approve: got %v", err)
	}
	if _, err := svc.Approve(ctx, staff, domain.RoleCustomer, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong role: got %v", err)
	}

	rejected, err := svc.Reject(ctx, staff, domain.RoleDriver, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.State != domain.VerificationRejected {
		t.Fatalf("state = %s", rejected.State)
	}

	again, err := svc.RequestVerification(ctx, "u1", "driver", docs("license-2.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != p.ID || again.IsVerified != nil {
		t.Fatalf("resubmission must reset the same profile to pending, got %+v", again)
	}

	if _, err := RequireVerified(ctx, store, "u1", domain.RoleDriver); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("pending profile: got %v", err)
	}
	if _, err := svc.Approve(ctx, staff, domain.RoleDriver, p.ID); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx, "u1", domain.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.VerificationVerified || len(got.Documents) != 3 {
		t.Fatalf("unexpected profile %+v", got)
	}

	party, err := RequireVerified(ctx, store, "u1", domain.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	if party.ProfileID != p.ID || party.FullName != "User u1" || party.Role != domain.RoleDriver {
		t.Fatalf("unexpected party %+v", party)
	}
}

func TestResubmitAfterVerifiedResetsToPending(t *testing.T) {
	svc, store := newTestService(t)
	addUser(t, store, "u1")
	ctx := context.Background()

	p, err := svc.RequestVerification(ctx, "u1", "customer", docs("id.png"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, staff, domain.RoleCustomer, p.ID); err != nil {
		t.Fatal(err)
	}
	again, err := svc.RequestVerification(ctx, "u1", "customer", docs("id-new.png"))
	if err != nil {
		t.Fatal(err)
	}
	if again.State != domain.VerificationPending {
		t.Fatalf("state = %s", again.State)
	}
}

func TestRequireVerifiedWithoutProfile(t *testing.T) {
	_, store := newTestService(t)
	addUser(t, store, "u1")

	_, err := RequireVerified(context.Background(), store, "u1", domain.RoleCustomer)
	if !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("got %v", err)
	}
}

func TestListMine(t *testing.T) {
	svc, store := newTestService(t)
	addUser(t, store, "u1")
	ctx := context.Background()

	for _, role := range []string{"driver", "customer"} {
		if _, err := svc.RequestVerification(ctx, "u1", role, docs("doc.pdf")); err != nil {
			t.Fatal(err)
		}
	}
	ps, err := svc.ListMine(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("profiles = %d", len(ps))
	}
}
