package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func TestMemberService_CreateMember(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	admin := Principal{MemberID: "admin-1", IsAdmin: true}

	t.Run("admin creates member", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepoStub()
		svc := NewMemberService(repo, plainHasher, sequentialIDs("member"), fixedNow(now))
		member, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: admin,
			Input: MemberInput{
				Email: "Kid@Example.com", DisplayName: "Kid",
				Color: "#33cc66", Password: "secret",
			},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if member.Email != "kid@example.com" {
			t.Fatalf("email not normalized: %q", member.Email)
		}
		stored := repo.members[member.ID]
		if stored.PasswordHash != "hashed:secret" {
			t.Fatalf("password not hashed: %q", stored.PasswordHash)
		}
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepoStub(), plainHasher, sequentialIDs("member"), fixedNow(now))
		_, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: Principal{MemberID: "member-1"},
			Input:     MemberInput{Email: "x@example.com", DisplayName: "X", Password: "pw"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("duplicate email surfaces as field error", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepoStub()
		svc := NewMemberService(repo, plainHasher, sequentialIDs("member"), fixedNow(now))
		input := MemberInput{Email: "same@example.com", DisplayName: "One", Password: "pw"}
		if _, err := svc.CreateMember(context.Background(), CreateMemberParams{Principal: admin, Input: input}); err != nil {
			t.Fatalf("first create: %v", err)
		}
		_, err := svc.CreateMember(context.Background(), CreateMemberParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatalf("expected email field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("invalid input collects field errors", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepoStub(), plainHasher, sequentialIDs("member"), fixedNow(now))
		_, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: admin,
			Input:     MemberInput{Email: "not-an-email"},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "display_name", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
			}
		}
	})
}

func TestMemberService_UpdateMember(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*MemberService, *memberRepoStub) {
		t.Helper()
		repo := newMemberRepoStub("member-1", "member-2")
		return NewMemberService(repo, plainHasher, sequentialIDs("member"), fixedNow(now)), repo
	}

	t.Run("member edits self", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		member, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "member-1"},
			MemberID:  "member-1",
			Input:     MemberInput{Email: "new@example.com", DisplayName: "Renamed", Color: "#112233"},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if member.DisplayName != "Renamed" || member.Color != "#112233" {
			t.Fatalf("update not applied: %+v", member)
		}
	})

	t.Run("member cannot edit others", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		_, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "member-1"},
			MemberID:  "member-2",
			Input:     MemberInput{Email: "x@example.com", DisplayName: "X"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("non-admin cannot self-promote", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		_, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "member-1"},
			MemberID:  "member-1",
			Input:     MemberInput{Email: "x@example.com", DisplayName: "X", IsAdmin: true},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["is_admin"]; !ok {
			t.Fatalf("expected is_admin field error, got %v", vErr.FieldErrors)
		}
	})
}

func TestMemberService_DeleteMember(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newMemberRepoStub("admin-1", "member-2")
	svc := NewMemberService(repo, plainHasher, sequentialIDs("member"), fixedNow(now))
	admin := Principal{MemberID: "admin-1", IsAdmin: true}

	if err := svc.DeleteMember(context.Background(), Principal{MemberID: "member-2"}, "admin-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	var vErr *ValidationError
	if err := svc.DeleteMember(context.Background(), admin, "admin-1"); !errors.As(err, &vErr) {
		t.Fatalf("self-delete should be a validation error, got %v", err)
	}

	if err := svc.DeleteMember(context.Background(), admin, "member-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.members["member-2"]; ok {
		t.Fatal("member not deleted")
	}
}
