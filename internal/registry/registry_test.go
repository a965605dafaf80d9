package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"resumeup/internal/registry"
	"resumeup/internal/services"
	"resumeup/internal/testsupport"
)

func TestBeginPlaceholderClaimsPointer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	placeholder, err := reg.BeginPlaceholder(ctx, "local-1", "resume.pdf")
	if err != nil {
		t.Fatalf("BeginPlaceholder: %v", err)
	}
	if placeholder.Status != registry.StatusProcessing {
		t.Fatalf("placeholder status = %s, want processing", placeholder.Status)
	}
	if placeholder.DateProcessed.IsZero() {
		t.Fatal("placeholder DateProcessed not set")
	}
	if got := reg.CurrentProcessingID(); got != "local-1" {
		t.Fatalf("CurrentProcessingID = %q, want local-1", got)
	}

	if _, err := reg.BeginPlaceholder(ctx, "local-2", "other.pdf"); !errors.Is(err, services.ErrProcessingActive) {
		t.Fatalf("second BeginPlaceholder error = %v, want ErrProcessingActive", err)
	}
	// The refused flow must leave no trace in the collection.
	if resume, _ := reg.GetByID(ctx, "local-2"); resume != nil {
		t.Fatal("refused placeholder was persisted")
	}
}

func TestCommitSwapsPlaceholderForFinalEntity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	placeholder := testsupport.NewPlaceholder(t, reg, "local-1", "resume.pdf")

	final := &registry.Resume{
		ID:           "srv-42",
		OriginalText: "before",
		ImprovedText: "after",
		DownloadURL:  "http://example.com/download/srv-42",
	}
	if err := reg.Commit(ctx, "local-1", final); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if resume, _ := reg.GetByID(ctx, "local-1"); resume != nil {
		t.Fatal("placeholder survived Commit")
	}
	committed, err := reg.GetByID(ctx, "srv-42")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if committed == nil {
		t.Fatal("final entity missing after Commit")
	}
	if committed.Status != registry.StatusCompleted {
		t.Fatalf("status = %s, want completed", committed.Status)
	}
	if committed.OriginalFilename != "resume.pdf" {
		t.Fatalf("filename = %q, want inherited resume.pdf", committed.OriginalFilename)
	}
	if !committed.DateProcessed.Equal(placeholder.DateProcessed) {
		t.Fatalf("DateProcessed = %v, want inherited %v", committed.DateProcessed, placeholder.DateProcessed)
	}
	if !committed.Deliverable() {
		t.Fatal("committed entity not deliverable")
	}
	if got := reg.CurrentProcessingID(); got != "" {
		t.Fatalf("CurrentProcessingID after Commit = %q, want empty", got)
	}
}

func TestCommitUnknownPlaceholderFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)

	err := reg.Commit(context.Background(), "missing", &registry.Resume{ID: "srv-1"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Commit error = %v, want ErrNotFound", err)
	}
}

func TestAbortKeepsEntityWithErrorStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	testsupport.NewPlaceholder(t, reg, "local-1", "resume.pdf")
	if err := reg.Abort(ctx, "local-1", "upload timed out"); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	aborted, err := reg.GetByID(ctx, "local-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if aborted == nil {
		t.Fatal("aborted entity removed from history")
	}
	if aborted.Status != registry.StatusError {
		t.Fatalf("status = %s, want error", aborted.Status)
	}
	if aborted.ErrorMessage != "upload timed out" {
		t.Fatalf("error message = %q", aborted.ErrorMessage)
	}
	if got := reg.CurrentProcessingID(); got != "" {
		t.Fatalf("CurrentProcessingID after Abort = %q, want empty", got)
	}

	// A new flow can start once the pointer is clear.
	if _, err := reg.BeginPlaceholder(ctx, "local-2", "next.pdf"); err != nil {
		t.Fatalf("BeginPlaceholder after Abort: %v", err)
	}
}

func TestUpdateRefusesTerminalRegression(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	testsupport.NewPlaceholder(t, reg, "local-1", "resume.pdf")
	if err := reg.Abort(ctx, "local-1", "failed"); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	processing := registry.StatusProcessing
	err := reg.Update(ctx, "local-1", registry.Fields{Status: &processing})
	if !errors.Is(err, registry.ErrTerminalState) {
		t.Fatalf("Update error = %v, want ErrTerminalState", err)
	}

	// Non-status fields on a terminal entity are still fair game.
	text := "recovered text"
	if err := reg.Update(ctx, "local-1", registry.Fields{OriginalText: &text}); err != nil {
		t.Fatalf("Update text: %v", err)
	}
	resume, _ := reg.GetByID(ctx, "local-1")
	if resume.OriginalText != "recovered text" {
		t.Fatalf("OriginalText = %q", resume.OriginalText)
	}
}

func TestUpdateMissingEntityIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)

	status := registry.StatusCompleted
	if err := reg.Update(context.Background(), "ghost", registry.Fields{Status: &status}); err != nil {
		t.Fatalf("Update on missing entity: %v", err)
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"first", "second", "third"} {
		err := reg.Add(ctx, &registry.Resume{
			ID:               id,
			OriginalFilename: id + ".pdf",
			Status:           registry.StatusCompleted,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	resumes, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resumes) != 3 {
		t.Fatalf("List returned %d entities, want 3", len(resumes))
	}
	for i, want := range []string{"third", "second", "first"} {
		if resumes[i].ID != want {
			t.Fatalf("List[%d] = %s, want %s", i, resumes[i].ID, want)
		}
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	entities := []*registry.Resume{
		{ID: "done", Status: registry.StatusCompleted},
		{ID: "bad", Status: registry.StatusError},
	}
	for _, resume := range entities {
		resume.OriginalFilename = resume.ID + ".pdf"
		if err := reg.Add(ctx, resume); err != nil {
			t.Fatalf("Add %s: %v", resume.ID, err)
		}
	}

	errored, err := reg.List(ctx, registry.StatusError)
	if err != nil {
		t.Fatalf("List errored: %v", err)
	}
	if len(errored) != 1 || errored[0].ID != "bad" {
		t.Fatalf("filtered list = %+v", errored)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := reg.Add(ctx, &registry.Resume{ID: id, OriginalFilename: id, Status: registry.StatusCompleted}); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	removed, err := reg.Remove(ctx, "a")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("Remove reported no row deleted")
	}
	removed, err = reg.Remove(ctx, "a")
	if err != nil {
		t.Fatalf("Remove again: %v", err)
	}
	if removed {
		t.Fatal("Remove deleted an already removed row")
	}

	cleared, err := reg.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("Clear removed %d rows, want 1", cleared)
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	if err := reg.Add(ctx, &registry.Resume{
		ID:               "srv-1",
		OriginalFilename: "resume.pdf",
		ImprovedText:     "better",
		Status:           registry.StatusCompleted,
		DownloadURL:      "http://example.com/download/srv-1",
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	reg.Close()

	reopened := testsupport.MustOpenRegistry(t, cfg)
	resume, err := reopened.GetByID(ctx, "srv-1")
	if err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
	if resume == nil {
		t.Fatal("entity lost across reopen")
	}
	if resume.ImprovedText != "better" || !resume.Deliverable() {
		t.Fatalf("reopened entity = %+v", resume)
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	for _, resume := range []*registry.Resume{
		{ID: "a", Status: registry.StatusCompleted},
		{ID: "b", Status: registry.StatusCompleted},
		{ID: "c", Status: registry.StatusError},
	} {
		resume.OriginalFilename = resume.ID
		if err := reg.Add(ctx, resume); err != nil {
			t.Fatalf("Add %s: %v", resume.ID, err)
		}
	}

	stats, err := reg.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[registry.StatusCompleted] != 2 || stats[registry.StatusError] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}
