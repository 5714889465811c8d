// Package storetest holds the behavioural contract shared by every
// store.UserStore / store.TaskStore implementation. Driver packages call
// RunUserStoreTests and RunTaskStoreTests from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns empty, isolated stores for one subtest.
type Factory func(t *testing.T) (store.UserStore, store.TaskStore)

// BaseTime is the fixed clock origin used by the contract fixtures.
// Microsecond precision keeps values identical across drivers.
var BaseTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// NewUser builds a valid, already-hashed user.
func NewUser(t *testing.T, username string) *domain.User {
	t.Helper()
	return &domain.User{
		ID:             uuid.New(),
		Username:       username,
		HashedPassword: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Role:           domain.RoleUser,
		CreatedAt:      BaseTime,
		UpdatedAt:      BaseTime,
	}
}

// MustCreateUser stores a fresh user and returns it.
func MustCreateUser(t *testing.T, users store.UserStore, username string) *domain.User {
	t.Helper()
	u := NewUser(t, username)
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

// NewTask builds a valid Open task created offset after BaseTime.
func NewTask(t *testing.T, ownerID uuid.UUID, title string, offset time.Duration) *domain.Task {
	t.Helper()
	created := BaseTime.Add(offset)
	return &domain.Task{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    domain.StatusOpen,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// MustCreateTask stores a fresh task and returns it.
func MustCreateTask(t *testing.T, tasks store.TaskStore, ownerID uuid.UUID, title string, offset time.Duration) *domain.Task {
	t.Helper()
	task := NewTask(t, ownerID, title, offset)
	require.NoError(t, tasks.Create(context.Background(), task))
	return task
}

// RunUserStoreTests exercises the UserStore contract.
func RunUserStoreTests(t *testing.T, newStores Factory) {
	t.Run("create and fetch", func(t *testing.T) {
		users, _ := newStores(t)
		ctx := context.Background()
		u := MustCreateUser(t, users, "alice")

		byID, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Username, byID.Username)
		assert.Equal(t, u.HashedPassword, byID.HashedPassword)
		assert.Equal(t, domain.RoleUser, byID.Role)
		assert.True(t, u.CreatedAt.Equal(byID.CreatedAt))

		byName, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		users, _ := newStores(t)
		MustCreateUser(t, users, "bob")
		err := users.Create(context.Background(), NewUser(t, "bob"))
		assert.ErrorIs(t, err, store.ErrUsernameExists)
	})

	t.Run("missing user", func(t *testing.T) {
		users, _ := newStores(t)
		_, err := users.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		_, err = users.GetByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("update", func(t *testing.T) {
		users, _ := newStores(t)
		ctx := context.Background()
		u := MustCreateUser(t, users, "carol")

		u.HashedPassword = "$2a$04$anotherhashanotherhashanotherhashanotherhashanotherha"
		u.Role = domain.RoleAdmin
		u.UpdatedAt = BaseTime.Add(time.Hour)
		require.NoError(t, users.Update(ctx, u))

		got, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.HashedPassword, got.HashedPassword)
		assert.Equal(t, domain.RoleAdmin, got.Role)
		assert.True(t, u.UpdatedAt.Equal(got.UpdatedAt))

		ghost := NewUser(t, "ghost")
		assert.ErrorIs(t, users.Update(ctx, ghost), store.ErrUserNotFound)
	})

	t.Run("delete cascades to tasks", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		u := MustCreateUser(t, users, "dave")
		task := MustCreateTask(t, tasks, u.ID, "orphan", 0)

		require.NoError(t, users.Delete(ctx, u.ID))
		_, err := users.GetByID(ctx, u.ID)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		_, err = tasks.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		assert.ErrorIs(t, users.Delete(ctx, u.ID), store.ErrUserNotFound)
	})
}

// RunTaskStoreTests exercises the TaskStore contract.
func RunTaskStoreTests(t *testing.T, newStores Factory) {
	t.Run("create and fetch", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")

		due := BaseTime.Add(72 * time.Hour)
		task := NewTask(t, owner.ID, "write spec", 0)
		task.Description = "with details"
		task.DueDate = &due
		require.NoError(t, tasks.Create(ctx, task))
		assert.Equal(t, int64(1), task.Version)

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.Equal(t, "write spec", got.Title)
		assert.Equal(t, "with details", got.Description)
		assert.Equal(t, domain.StatusOpen, got.Status)
		require.NotNil(t, got.DueDate)
		assert.True(t, due.Equal(*got.DueDate))
		assert.Equal(t, int64(1), got.Version)
		assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, task.UpdatedAt.Equal(got.UpdatedAt))

		undated := MustCreateTask(t, tasks, owner.ID, "no due date", time.Second)
		got, err = tasks.GetByID(ctx, undated.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DueDate)
	})

	t.Run("far future due date", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")

		due := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
		task := NewTask(t, owner.ID, "time capsule", 0)
		task.DueDate = &due
		require.NoError(t, tasks.Create(ctx, task))

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DueDate)
		assert.True(t, due.Equal(*got.DueDate), "got %s", got.DueDate)

		after := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
		page, err := tasks.ListByOwner(ctx, owner.ID, domain.TaskFilter{DueAfter: &after}, store.PageRequest{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{task.ID}, taskIDs(page.Tasks))
	})

	t.Run("duplicate id", func(t *testing.T) {
		users, tasks := newStores(t)
		owner := MustCreateUser(t, users, "owner")
		task := MustCreateTask(t, tasks, owner.ID, "once", 0)
		again := *task
		assert.ErrorIs(t, tasks.Create(context.Background(), &again), store.ErrDuplicate)
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, tasks := newStores(t)
		task := NewTask(t, uuid.New(), "nobody's", 0)
		assert.ErrorIs(t, tasks.Create(context.Background(), task), store.ErrInvalidEntity)
	})

	t.Run("missing task", func(t *testing.T) {
		_, tasks := newStores(t)
		_, err := tasks.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("version-guarded update", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")
		task := MustCreateTask(t, tasks, owner.ID, "draft", 0)

		task.Title = "final"
		task.Status = domain.StatusInProgress
		task.UpdatedAt = BaseTime.Add(time.Minute)
		require.NoError(t, tasks.Update(ctx, task, 1))
		assert.Equal(t, int64(2), task.Version)

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
		assert.Equal(t, domain.StatusInProgress, got.Status)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, BaseTime.Add(time.Minute).Equal(got.UpdatedAt))

		stale := *got
		stale.Title = "stale"
		assert.ErrorIs(t, tasks.Update(ctx, &stale, 1), store.ErrConflict)
		assert.Equal(t, int64(2), stale.Version, "failed update must not bump version")

		missing := NewTask(t, owner.ID, "missing", 0)
		assert.ErrorIs(t, tasks.Update(ctx, missing, 1), store.ErrTaskNotFound)
	})

	t.Run("save is idempotent on id", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")
		task := MustCreateTask(t, tasks, owner.ID, "same", 0)

		require.NoError(t, tasks.Update(ctx, task, task.Version))
		require.NoError(t, tasks.Update(ctx, task, task.Version))

		page, err := tasks.ListByOwner(ctx, owner.ID, domain.TaskFilter{}, store.PageRequest{Limit: 10})
		require.NoError(t, err)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, int64(3), page.Tasks[0].Version)
	})

	t.Run("version-guarded delete", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")
		task := MustCreateTask(t, tasks, owner.ID, "doomed", 0)

		assert.ErrorIs(t, tasks.Delete(ctx, task.ID, 7), store.ErrConflict)
		require.NoError(t, tasks.Delete(ctx, task.ID, 1))
		_, err := tasks.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.ErrorIs(t, tasks.Delete(ctx, task.ID, 1), store.ErrTaskNotFound)
	})

	t.Run("concurrent updates: exactly one wins", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")
		task := MustCreateTask(t, tasks, owner.ID, "contended", 0)

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		start := make(chan struct{})
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mine := *task
				mine.Title = fmt.Sprintf("writer %d", i)
				<-start
				errs[i] = tasks.Update(ctx, &mine, 1)
			}(i)
		}
		close(start)
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, store.ErrConflict)
		}
		assert.Equal(t, 1, wins)

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("list orders newest first and scopes to owner", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		alice := MustCreateUser(t, users, "alice")
		bob := MustCreateUser(t, users, "bob")

		var want []uuid.UUID
		for i := 0; i < 5; i++ {
			task := MustCreateTask(t, tasks, alice.ID, fmt.Sprintf("a%d", i), time.Duration(i)*time.Minute)
			want = append([]uuid.UUID{task.ID}, want...)
		}
		MustCreateTask(t, tasks, bob.ID, "bob's", 10*time.Minute)

		page, err := tasks.ListByOwner(ctx, alice.ID, domain.TaskFilter{}, store.PageRequest{Limit: 50})
		require.NoError(t, err)
		assert.Nil(t, page.Next)
		assert.Equal(t, want, taskIDs(page.Tasks))

		empty, err := tasks.ListByOwner(ctx, uuid.New(), domain.TaskFilter{}, store.PageRequest{Limit: 50})
		require.NoError(t, err)
		assert.NotNil(t, empty.Tasks)
		assert.Empty(t, empty.Tasks)
	})

	t.Run("pagination is stable under inserts", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")

		var want []uuid.UUID
		for i := 0; i < 7; i++ {
			task := MustCreateTask(t, tasks, owner.ID, fmt.Sprintf("t%d", i), time.Duration(i)*time.Minute)
			want = append([]uuid.UUID{task.ID}, want...)
		}
		// Same created_at for two rows forces the id tie-break.
		tieA := MustCreateTask(t, tasks, owner.ID, "tie a", -time.Hour)
		tieB := MustCreateTask(t, tasks, owner.ID, "tie b", -time.Hour)
		if tieA.ID.String() > tieB.ID.String() {
			want = append(want, tieA.ID, tieB.ID)
		} else {
			want = append(want, tieB.ID, tieA.ID)
		}

		var got []uuid.UUID
		req := store.PageRequest{Limit: 3}
		for pages := 0; ; pages++ {
			require.Less(t, pages, 10, "pagination did not terminate")
			page, err := tasks.ListByOwner(ctx, owner.ID, domain.TaskFilter{}, req)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Tasks), 3)
			got = append(got, taskIDs(page.Tasks)...)

			// A newer task arriving mid-walk must not disturb later pages.
			if pages == 0 {
				MustCreateTask(t, tasks, owner.ID, "late arrival", 24*time.Hour)
			}
			if page.Next == nil {
				break
			}
			req.After = page.Next
		}
		assert.Equal(t, want, got)
	})

	t.Run("filters", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")

		d1 := BaseTime.Add(24 * time.Hour)
		d2 := BaseTime.Add(48 * time.Hour)
		mk := func(title string, status domain.Status, due *time.Time, offset time.Duration) *domain.Task {
			task := NewTask(t, owner.ID, title, offset)
			task.Status = status
			task.DueDate = due
			require.NoError(t, tasks.Create(ctx, task))
			return task
		}
		groceries := mk("Buy Groceries", domain.StatusOpen, &d1, 0)
		report := mk("Quarterly report", domain.StatusInProgress, &d2, time.Minute)
		done := mk("Done thing", domain.StatusCompleted, nil, 2*time.Minute)
		percent := mk("100% effort", domain.StatusOpen, nil, 3*time.Minute)

		list := func(f domain.TaskFilter) []uuid.UUID {
			page, err := tasks.ListByOwner(ctx, owner.ID, f, store.PageRequest{Limit: 50})
			require.NoError(t, err)
			return taskIDs(page.Tasks)
		}

		assert.Equal(t, []uuid.UUID{percent.ID, groceries.ID},
			list(domain.TaskFilter{Statuses: []domain.Status{domain.StatusOpen}}))
		assert.Equal(t, []uuid.UUID{done.ID, report.ID},
			list(domain.TaskFilter{Statuses: []domain.Status{domain.StatusInProgress, domain.StatusCompleted}}))
		assert.Equal(t, []uuid.UUID{groceries.ID},
			list(domain.TaskFilter{DueBefore: &d2}))
		assert.Equal(t, []uuid.UUID{report.ID, groceries.ID},
			list(domain.TaskFilter{DueAfter: &d1}))
		assert.Equal(t, []uuid.UUID{report.ID},
			list(domain.TaskFilter{Query: "QUARTER"}))
		assert.Equal(t, []uuid.UUID{percent.ID},
			list(domain.TaskFilter{Query: "0%"}))
		assert.Empty(t, list(domain.TaskFilter{Query: "_"}))
		assert.Equal(t, []uuid.UUID{groceries.ID},
			list(domain.TaskFilter{Statuses: []domain.Status{domain.StatusOpen}, DueAfter: &d1, Query: "buy"}))
	})

	t.Run("query folds non-ascii case", func(t *testing.T) {
		users, tasks := newStores(t)
		ctx := context.Background()
		owner := MustCreateUser(t, users, "owner")

		review := MustCreateTask(t, tasks, owner.ID, "Überprüfen", 0)
		greek := MustCreateTask(t, tasks, owner.ID, "ΣΟΦΙΑ notes", time.Minute)
		MustCreateTask(t, tasks, owner.ID, "Uber ride", 2*time.Minute)

		tests := []struct {
			query string
			want  []uuid.UUID
		}{
			{"über", []uuid.UUID{review.ID}},
			{"ÜBERPRÜF", []uuid.UUID{review.ID}},
			{"σοφ", []uuid.UUID{greek.ID}},
			{"prüfen", []uuid.UUID{review.ID}},
		}
		for _, tt := range tests {
			f := domain.TaskFilter{Query: tt.query}
			page, err := tasks.ListByOwner(ctx, owner.ID, f, store.PageRequest{Limit: 10})
			require.NoError(t, err, tt.query)
			assert.Equal(t, tt.want, taskIDs(page.Tasks), tt.query)
			for i := range page.Tasks {
				assert.True(t, f.Matches(&page.Tasks[i]), tt.query)
			}
		}
	})
}

func taskIDs(tasks []domain.Task) []uuid.UUID {
	ids := make([]uuid.UUID, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	return ids
}
