// Package testfixture builds marketplace participants directly in storage
// for service tests.
package testfixture

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
)

var (
	Staff = domain.Principal{UserID: "staff", IsStaff: true}
	Day   = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	phones atomic.Int64
)

// User inserts an account with the given full name.
func User(t testing.TB, stg storage.IStorage, name string) domain.User {
	t.Helper()
	u := domain.User{
		ID:         uuid.NewString(),
		Phone:      fmt.Sprintf("+99890%07d", phones.Add(1)),
		FullName:   name,
		DateJoined: time.Now().UTC(),
	}
	if err := stg.User().Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Party gives the user a role profile in the requested state.
func Party(t testing.TB, stg storage.IStorage, u domain.User, role domain.Role, state domain.VerificationState) domain.Party {
	t.Helper()
	ctx := context.Background()
	p, err := stg.Profile().GetOrCreate(ctx, u.ID, role)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := stg.Profile().SetVerification(ctx, p.ID, state.Flag()); err != nil {
		t.Fatalf("set verification: %v", err)
	}
	return domain.Party{ProfileID: p.ID, UserID: u.ID, FullName: u.FullName, Role: role}
}

// Verified is a user holding one verified profile.
func Verified(t testing.TB, stg storage.IStorage, name string, role domain.Role) domain.Party {
	t.Helper()
	return Party(t, stg, User(t, stg, name), role, domain.VerificationVerified)
}

// Vehicle registers a vehicle for a driver party.
func Vehicle(t testing.TB, stg storage.IStorage, driver domain.Party, registration string) *domain.Vehicle {
	t.Helper()
	ctx := context.Background()
	cat := &domain.VehicleCategory{ID: uuid.NewString(), Title: "Category " + registration}
	if err := stg.Vehicle().CreateCategory(ctx, cat); err != nil {
		t.Fatalf("create category: %v", err)
	}
	v := &domain.Vehicle{
		ID:                 uuid.NewString(),
		DriverID:           driver.ProfileID,
		RegistrationNumber: registration,
		Capacity:           10,
		CategoryID:         cat.ID,
		CategoryTitle:      cat.Title,
		CreatedAt:          time.Now().UTC(),
	}
	if err := stg.Vehicle().Create(ctx, v); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

// Principal is the authenticated caller for a party.
func Principal(p domain.Party) domain.Principal {
	return domain.Principal{UserID: p.UserID}
}
