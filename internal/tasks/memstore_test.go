package tasks_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voxtask/voxtask/internal/tasks"
)

func TestCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with empty ID generates one", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		got, err := s.Create(ctx, tasks.Task{Title: "buy milk"})
		if err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
		if got.ID == "" {
			t.Fatal("Create: expected generated ID, got empty string")
		}
	})

	t.Run("with explicit ID is preserved", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		got, err := s.Create(ctx, tasks.Task{ID: "task-001", Title: "buy milk"})
		if err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
		if got.ID != "task-001" {
			t.Fatalf("Create: expected ID %q, got %q", "task-001", got.ID)
		}
	})

	t.Run("empty status defaults to open", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		got, err := s.Create(ctx, tasks.Task{Title: "buy milk"})
		if err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
		if got.Status != tasks.StatusOpen {
			t.Fatalf("Create: expected status open, got %q", got.Status)
		}
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		if _, err := s.Create(ctx, tasks.Task{Title: "x", Status: "pending"}); err == nil {
			t.Fatal("Create: expected error for invalid status, got nil")
		}
	})

	t.Run("duplicate ID returns ErrDuplicateID", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		task := tasks.Task{ID: "dup-01", Title: "first"}
		if _, err := s.Create(ctx, task); err != nil {
			t.Fatalf("Create first: unexpected error: %v", err)
		}
		_, err := s.Create(ctx, task)
		if !errors.Is(err, tasks.ErrDuplicateID) {
			t.Fatalf("Create duplicate: expected ErrDuplicateID, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := tasks.NewMemStore()
	created, _ := s.Create(ctx, tasks.Task{Title: "water plants", Description: "the ones on the balcony"})

	t.Run("existing task", func(t *testing.T) {
		t.Parallel()
		got, err := s.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: unexpected error: %v", err)
		}
		if got.Title != "water plants" {
			t.Fatalf("Get: expected title %q, got %q", "water plants", got.Title)
		}
		if got.Description != "the ones on the balcony" {
			t.Fatalf("Get: unexpected description %q", got.Description)
		}
	})

	t.Run("missing task returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := s.Get(ctx, "does-not-exist")
		if !errors.Is(err, tasks.ErrNotFound) {
			t.Fatalf("Get: expected ErrNotFound, got %v", err)
		}
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		got, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("List: expected no tasks, got %d", len(got))
		}
	})

	t.Run("returns all tasks", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		for _, title := range []string{"one", "two", "three"} {
			if _, err := s.Create(ctx, tasks.Task{Title: title}); err != nil {
				t.Fatalf("setup Create: %v", err)
			}
		}
		got, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List: expected 3 tasks, got %d", len(got))
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("replaces fields", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		created, _ := s.Create(ctx, tasks.Task{Title: "old title"})

		created.Title = "new title"
		created.Description = "now with detail"
		if err := s.Update(ctx, created); err != nil {
			t.Fatalf("Update: unexpected error: %v", err)
		}

		got, _ := s.Get(ctx, created.ID)
		if got.Title != "new title" || got.Description != "now with detail" {
			t.Fatalf("Update: task not replaced, got %+v", got)
		}
	})

	t.Run("missing task returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		err := s.Update(ctx, tasks.Task{ID: "nope", Title: "x", Status: tasks.StatusOpen})
		if !errors.Is(err, tasks.ErrNotFound) {
			t.Fatalf("Update: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		created, _ := s.Create(ctx, tasks.Task{Title: "x"})
		created.Status = "archived"
		if err := s.Update(ctx, created); err == nil {
			t.Fatal("Update: expected error for invalid status, got nil")
		}
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("removes the task", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		created, _ := s.Create(ctx, tasks.Task{Title: "temp"})

		if err := s.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete: unexpected error: %v", err)
		}
		if _, err := s.Get(ctx, created.ID); !errors.Is(err, tasks.ErrNotFound) {
			t.Fatalf("Get after Delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing task returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		if err := s.Delete(ctx, "nope"); !errors.Is(err, tasks.ErrNotFound) {
			t.Fatalf("Delete: expected ErrNotFound, got %v", err)
		}
	})
}

func TestSetStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("closes and reopens", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		created, _ := s.Create(ctx, tasks.Task{Title: "toggle me"})

		if err := s.SetStatus(ctx, created.ID, tasks.StatusClosed); err != nil {
			t.Fatalf("SetStatus closed: unexpected error: %v", err)
		}
		got, _ := s.Get(ctx, created.ID)
		if got.Status != tasks.StatusClosed {
			t.Fatalf("expected status closed, got %q", got.Status)
		}

		if err := s.SetStatus(ctx, created.ID, tasks.StatusOpen); err != nil {
			t.Fatalf("SetStatus open: unexpected error: %v", err)
		}
		got, _ = s.Get(ctx, created.ID)
		if got.Status != tasks.StatusOpen {
			t.Fatalf("expected status open, got %q", got.Status)
		}
	})

	t.Run("missing task returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		err := s.SetStatus(ctx, "nope", tasks.StatusClosed)
		if !errors.Is(err, tasks.ErrNotFound) {
			t.Fatalf("SetStatus: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		t.Parallel()
		s := tasks.NewMemStore()
		created, _ := s.Create(ctx, tasks.Task{Title: "x"})
		if err := s.SetStatus(ctx, created.ID, "someday"); err == nil {
			t.Fatal("SetStatus: expected error for invalid status, got nil")
		}
	})
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := tasks.NewMemStore()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.Create(ctx, tasks.Task{Title: "concurrent"})
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			if _, err := s.Get(ctx, created.ID); err != nil {
				t.Errorf("Get: %v", err)
			}
			if err := s.SetStatus(ctx, created.ID, tasks.StatusClosed); err != nil {
				t.Errorf("SetStatus: %v", err)
			}
			if _, err := s.List(ctx); err != nil {
				t.Errorf("List: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 tasks after concurrent creates, got %d", len(got))
	}
}
