package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"timesheets/internal/database"
	"timesheets/internal/models"
	"timesheets/internal/notify"
	"timesheets/internal/repository/embedded"
	"timesheets/internal/security"
)

var testHasherParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(event notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) ofType(eventType notify.EventType) []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []notify.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type testEnv struct {
	clock      *testClock
	events     *recordingDispatcher
	directory  *embedded.DirectoryRepository
	identities *embedded.IdentityRepository
	orders     *embedded.WorkOrderRepository
	refresh    *RefreshTokenStore
	auth       *AuthService
	workOrders *WorkOrderService
	sites      *DirectoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "timesheets.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := embedded.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	events := &recordingDispatcher{}
	directory := embedded.NewDirectoryRepository(db)
	identities := embedded.NewIdentityRepository(db)
	orders := embedded.NewWorkOrderRepository(db)

	refresh := NewRefreshTokenStore(embedded.NewRefreshTokenRepository(db), 7*24*time.Hour).WithClock(clock.Now)
	auth := NewAuthService(AuthDeps{
		Identities: identities,
		Directory:  directory,
		Refresh:    refresh,
		Resets:     embedded.NewResetTokenRepository(db),
		Issuer:     security.NewTokenIssuer("test-secret", 15*time.Minute),
		Hasher:     security.NewPasswordHasher(testHasherParams),
		Notifier:   events,
		ResetTTL:   time.Hour,
	}, zerolog.Nop())
	auth.now = clock.Now

	workOrders := NewWorkOrderService(WorkOrderDeps{
		Orders:         orders,
		Expenses:       embedded.NewExpenseRepository(db),
		Identities:     identities,
		Directory:      directory,
		Notifier:       events,
		MaxReceiptSize: 1 << 20,
	}, zerolog.Nop()).WithClock(clock.Now)

	return &testEnv{
		clock:      clock,
		events:     events,
		directory:  directory,
		identities: identities,
		orders:     orders,
		refresh:    refresh,
		auth:       auth,
		workOrders: workOrders,
		sites:      NewDirectoryService(directory),
	}
}

func (env *testEnv) site(t *testing.T) models.Site {
	t.Helper()
	site, err := env.sites.CreateSite(context.Background(), "North Yard")
	if err != nil {
		t.Fatalf("CreateSite returned error: %v", err)
	}
	return site
}

func (env *testEnv) register(t *testing.T, email string) Session {
	t.Helper()
	session, err := env.auth.Register(context.Background(), RegisterInput{Email: email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register(%s) returned error: %v", email, err)
	}
	return session
}

func (env *testEnv) identity(t *testing.T, email string, role models.Role) models.Identity {
	t.Helper()
	identity, err := env.auth.createIdentity(context.Background(), CreateIdentityInput{
		Email:    email,
		Password: "correct-horse",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("createIdentity(%s) returned error: %v", email, err)
	}
	return identity
}

func (env *testEnv) draft(t *testing.T, worker models.Identity, site models.Site) models.WorkOrder {
	t.Helper()
	order, err := env.workOrders.Create(context.Background(), worker.ID, CreateWorkOrderInput{
		SiteID:    site.ID,
		WorkDate:  "2026-03-02",
		StartTime: "08:00",
		EndTime:   "17:00",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return order
}
