package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRefreshTokenStoreValidateAndRotate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com").Identity

	token, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 character token, got %d", len(token))
	}

	identityID, err := env.refresh.Validate(ctx, token)
	if err != nil || identityID != owner.ID {
		t.Fatalf("expected token to validate for %s, got %q (err %v)", owner.ID, identityID, err)
	}

	rotatedFor, next, err := env.refresh.Rotate(ctx, token)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if rotatedFor != owner.ID || next == token {
		t.Fatalf("unexpected rotation result: %q %q", rotatedFor, next)
	}

	if _, err := env.refresh.Validate(ctx, token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected rotated-out token to be gone, got %v", err)
	}
	if _, _, err := env.refresh.Rotate(ctx, token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected second rotation of the old token to fail, got %v", err)
	}
	if identityID, err := env.refresh.Validate(ctx, next); err != nil || identityID != owner.ID {
		t.Fatalf("expected successor to validate, got %q (err %v)", identityID, err)
	}
}

func TestRefreshTokenStoreExpiredThenNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "expiring@example.com").Identity

	token, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	env.clock.Advance(7*24*time.Hour + time.Second)

	if _, err := env.refresh.Validate(ctx, token); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
	if _, err := env.refresh.Validate(ctx, token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound after expiry cleanup, got %v", err)
	}
}

func TestRefreshTokenStoreRotateExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "rotate-expired@example.com").Identity

	token, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	env.clock.Advance(8 * 24 * time.Hour)

	if _, _, err := env.refresh.Rotate(ctx, token); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
	if _, _, err := env.refresh.Rotate(ctx, token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected expired token to be deleted, got %v", err)
	}
}

func TestRefreshTokenStoreConcurrentRotationHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "racer@example.com").Identity

	token, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		notFound int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := env.refresh.Rotate(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrRefreshTokenNotFound):
				notFound++
			default:
				t.Errorf("unexpected rotation error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 || notFound != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d not-found", winners, notFound)
	}
}

func TestRefreshTokenStoreRevokeAndSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "sweep@example.com").Identity

	first, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if err := env.refresh.Revoke(ctx, first); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if err := env.refresh.Revoke(ctx, first); err != nil {
		t.Fatalf("expected repeated revoke to be a no-op, got %v", err)
	}
	if _, err := env.refresh.Validate(ctx, first); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected revoked token to be gone, got %v", err)
	}

	if _, err := env.refresh.Issue(ctx, owner.ID); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	env.clock.Advance(6 * 24 * time.Hour)
	live, err := env.refresh.Issue(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	env.clock.Advance(2 * 24 * time.Hour)

	// The registration token and the one issued alongside it are now past
	// their lifetime; the later one is not.
	removed, err := env.refresh.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 expired tokens removed, got %d", removed)
	}
	if _, err := env.refresh.Validate(ctx, live); err != nil {
		t.Fatalf("expected live token to survive the sweep, got %v", err)
	}

	revoked, err := env.refresh.RevokeAll(ctx, owner.ID)
	if err != nil || revoked != 1 {
		t.Fatalf("expected RevokeAll to remove 1 token, got %d (err %v)", revoked, err)
	}
}
