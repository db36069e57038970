package memory

import (
	"context"
	"testing"

	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/mmynk/fairshare/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestViewDoesNotCopyState(t *testing.T) {
	ctx := context.Background()
	s := New()
	for id := uint64(1); id <= 1000; id++ {
		if err := s.PutGroup(ctx, &models.Group{ID: id, Name: "g", Creator: "alice", Members: []string{"alice"}}); err != nil {
			t.Fatalf("PutGroup() error = %v", err)
		}
		if err := s.AddToUserGroups(ctx, "alice", id); err != nil {
			t.Fatalf("AddToUserGroups() error = %v", err)
		}
	}

	read := func(ctx context.Context, repo storage.Repository) error {
		_, err := repo.GroupExists(ctx, 500)
		return err
	}
	allocs := testing.AllocsPerRun(20, func() {
		if err := s.View(ctx, read); err != nil {
			t.Fatalf("View() error = %v", err)
		}
	})
	if allocs > 4 {
		t.Errorf("View allocated %.0f times per call over 1000 groups, want a constant few", allocs)
	}
}
