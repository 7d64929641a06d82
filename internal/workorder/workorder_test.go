package workorder

import (
	"errors"
	"testing"

	"timesheets/internal/models"
)

func TestComputeHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   string
		end     string
		want    float64
		wantErr error
	}{
		{name: "full day", start: "08:00", end: "17:00", want: 9},
		{name: "quarter hours", start: "08:15", end: "12:30", want: 4.25},
		{name: "single minute", start: "23:58", end: "23:59", want: 1.0 / 60},
		{name: "equal times", start: "09:00", end: "09:00", wantErr: ErrInvalidRange},
		{name: "end before start", start: "17:00", end: "08:00", wantErr: ErrInvalidRange},
		{name: "bad hour", start: "24:00", end: "25:00", wantErr: ErrInvalidTime},
		{name: "bad minute", start: "08:60", end: "09:00", wantErr: ErrInvalidTime},
		{name: "missing colon", start: "0800", end: "09:00", wantErr: ErrInvalidTime},
		{name: "single digit hour", start: "8:00", end: "09:00", wantErr: ErrInvalidTime},
		{name: "sign", start: "+8:00", end: "09:00", wantErr: ErrInvalidTime},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ComputeHours(tc.start, tc.end)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeHours returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v hours, got %v", tc.want, got)
			}
		})
	}
}

func TestComputeHoursMatchesMinuteFormula(t *testing.T) {
	t.Parallel()

	starts := []string{"00:00", "06:45", "12:00", "18:20"}
	ends := []string{"00:00", "06:45", "07:00", "12:01", "23:59"}

	for _, start := range starts {
		for _, end := range ends {
			startMinutes, _ := ParseClock(start)
			endMinutes, _ := ParseClock(end)

			got, err := ComputeHours(start, end)
			if endMinutes <= startMinutes {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("%s-%s: expected range error, got %v", start, end, err)
				}
				continue
			}
			want := float64(endMinutes-startMinutes) / 60
			if err != nil || got != want {
				t.Fatalf("%s-%s: expected %v, got %v (err %v)", start, end, want, got, err)
			}
		}
	}
}

func TestDurationAllowsNonPositive(t *testing.T) {
	t.Parallel()

	got, err := Duration("17:00", "08:00")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if got != -9 {
		t.Fatalf("expected -9, got %v", got)
	}
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	statuses := []models.WorkOrderStatus{
		models.WorkOrderStatusDraft,
		models.WorkOrderStatusSubmitted,
		models.WorkOrderStatusApproved,
		models.WorkOrderStatusRejected,
	}

	allowed := map[Operation]map[models.WorkOrderStatus]models.WorkOrderStatus{
		OpSubmit: {
			models.WorkOrderStatusDraft: models.WorkOrderStatusSubmitted,
		},
		OpApprove: {
			models.WorkOrderStatusSubmitted: models.WorkOrderStatusApproved,
		},
		OpReject: {
			models.WorkOrderStatusSubmitted: models.WorkOrderStatusRejected,
		},
	}

	for op, targets := range allowed {
		for _, from := range statuses {
			got, err := Transition(op, from)
			want, ok := targets[from]
			if ok {
				if err != nil || got != want {
					t.Fatalf("%s from %s: expected %s, got %s (err %v)", op, from, want, got, err)
				}
				continue
			}

			var transitionErr *TransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("%s from %s: expected TransitionError, got %v", op, from, err)
			}
			if transitionErr.Op != op || transitionErr.Status != from {
				t.Fatalf("unexpected transition error contents: %+v", transitionErr)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatal("expected TransitionError to match ErrInvalidTransition")
			}
		}
	}
}

func TestMutationsLockedOnlyWhenApproved(t *testing.T) {
	t.Parallel()

	ops := []Operation{OpUpdate, OpAddExpense, OpRemoveExpense, OpAttachReceipt}
	for _, op := range ops {
		for _, from := range []models.WorkOrderStatus{
			models.WorkOrderStatusDraft,
			models.WorkOrderStatusSubmitted,
			models.WorkOrderStatusRejected,
		} {
			got, err := Transition(op, from)
			if err != nil || got != from {
				t.Fatalf("%s from %s: expected unchanged status, got %s (err %v)", op, from, got, err)
			}
		}

		if _, err := Transition(op, models.WorkOrderStatusApproved); !errors.Is(err, ErrLocked) {
			t.Fatalf("%s on approved: expected ErrLocked, got %v", op, err)
		}
	}
}

func TestTransitionRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	if _, err := Transition(OpSubmit, "ARCHIVED"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if _, err := Transition("reopen", models.WorkOrderStatusRejected); err == nil {
		t.Fatal("expected unknown operation to fail")
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	workerID := "worker-1"
	otherWorker := "worker-2"
	admin := models.Identity{ID: "a", Role: models.RoleAdmin}
	supervisor := models.Identity{ID: "s", Role: models.RoleSupervisor}
	owner := models.Identity{ID: "w", Role: models.RoleWorker, WorkerID: &workerID}
	stranger := models.Identity{ID: "x", Role: models.RoleWorker, WorkerID: &otherWorker}

	tests := []struct {
		op      Operation
		actor   models.Identity
		allowed bool
	}{
		{OpSubmit, owner, true},
		{OpSubmit, admin, true},
		{OpSubmit, supervisor, false},
		{OpSubmit, stranger, false},
		{OpApprove, supervisor, true},
		{OpApprove, admin, true},
		{OpApprove, owner, false},
		{OpReject, supervisor, true},
		{OpReject, owner, false},
		{OpUpdate, owner, true},
		{OpUpdate, supervisor, true},
		{OpUpdate, stranger, false},
		{OpAddExpense, owner, true},
		{OpRemoveExpense, stranger, false},
		{OpAttachReceipt, admin, true},
	}

	for _, tc := range tests {
		err := Authorize(tc.op, tc.actor, workerID)
		if tc.allowed && err != nil {
			t.Fatalf("%s by %s: expected allowed, got %v", tc.op, tc.actor.ID, err)
		}
		if !tc.allowed && !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s by %s: expected ErrForbidden, got %v", tc.op, tc.actor.ID, err)
		}
	}
}

func TestCanCreateFor(t *testing.T) {
	t.Parallel()

	workerID := "worker-1"
	owner := models.Identity{Role: models.RoleWorker, WorkerID: &workerID}
	unlinked := models.Identity{Role: models.RoleWorker}

	if !CanCreateFor(owner, workerID) {
		t.Fatal("expected worker to create for own record")
	}
	if CanCreateFor(owner, "worker-2") {
		t.Fatal("expected worker to be refused for another record")
	}
	if CanCreateFor(unlinked, workerID) {
		t.Fatal("expected unlinked worker to be refused")
	}
	if !CanCreateFor(models.Identity{Role: models.RoleSupervisor}, workerID) {
		t.Fatal("expected supervisor to create for any worker")
	}
}
