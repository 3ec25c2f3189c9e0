package queue

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

type fakeQueueRepo struct {
	entries []*model.QueueEntry
}

func (f *fakeQueueRepo) Upsert(_ context.Context, entry *model.QueueEntry) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ClientUserID != entry.ClientUserID {
			kept = append(kept, e)
		}
	}
	f.entries = append(kept, entry)
	return nil
}

func (f *fakeQueueRepo) GetForClient(_ context.Context, clientUserID uuid.UUID) (*model.QueueEntry, error) {
	for _, e := range f.entries {
		if e.ClientUserID == clientUserID {
			return e, nil
		}
	}
	return nil, postgres.ErrQueueEntryNotFound
}

func (f *fakeQueueRepo) List(_ context.Context) ([]*model.QueueEntry, error) {
	out := make([]*model.QueueEntry, len(f.entries))
	copy(out, f.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority
		}
		return out[i].TargetDate.Before(out[j].TargetDate)
	})
	return out, nil
}

func (f *fakeQueueRepo) ListForClient(_ context.Context, clientUserID uuid.UUID) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range f.entries {
		if e.ClientUserID == clientUserID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) Delete(_ context.Context, clientUserID uuid.UUID, targetDate time.Time, professionType string) error {
	for i, e := range f.entries {
		if e.ClientUserID == clientUserID && e.TargetDate.Equal(targetDate) && e.ProfessionType == professionType {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return postgres.ErrQueueEntryNotFound
}

func (f *fakeQueueRepo) DeleteForClient(_ context.Context, clientUserID uuid.UUID) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ClientUserID != clientUserID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

type fakeUserRepo struct {
	clients map[uuid.UUID]bool
}

func (f *fakeUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error)     { return nil, nil }
func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) { return nil, nil }
func (f *fakeUserRepo) Update(_ context.Context, _ *model.User) error               { return nil }
func (f *fakeUserRepo) Exists(_ context.Context, id uuid.UUID, userType string) (bool, error) {
	return userType == model.UserTypeClient && f.clients[id], nil
}

func newTestService(clients ...uuid.UUID) (*Service, *fakeQueueRepo) {
	repo := &fakeQueueRepo{}
	known := make(map[uuid.UUID]bool, len(clients))
	for _, id := range clients {
		known[id] = true
	}
	return NewService(repo, &fakeUserRepo{clients: known}, nil), repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEnqueueDefaults(t *testing.T) {
	clientID := uuid.New()
	svc, _ := newTestService(clientID)

	entry, err := svc.Enqueue(context.Background(), clientID, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     time.Date(2026, 9, 7, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 20, entry.Duration)
	assert.Equal(t, model.GenderNoPreference, entry.MedicalGender)
	assert.Equal(t, date(2026, 9, 7), entry.TargetDate)
	assert.Equal(t, "UTC", entry.Timezone)
}

func TestEnqueueUnknownClient(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Enqueue(context.Background(), uuid.New(), &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 7),
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestEnqueueReplacesExistingEntry(t *testing.T) {
	clientID := uuid.New()
	svc, repo := newTestService(clientID)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, clientID, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 7),
	})
	require.NoError(t, err)

	entry, err := svc.Enqueue(ctx, clientID, &model.QueueEntryRequest{
		ProfessionType: "trainer",
		TargetDate:     date(2026, 9, 14),
		Duration:       30,
	})
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, entry.ID, repo.entries[0].ID)
	assert.Equal(t, "trainer", repo.entries[0].ProfessionType)
}

func TestListOrdersPriorityThenDate(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	svc, _ := newTestService(a, b, c)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, a, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 7),
	})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, b, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 21),
		Priority:       true,
	})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, c, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 1),
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, resp.TotalQueue)
	// Priority entry leads even with the latest target date.
	assert.Equal(t, b, resp.Queue[0].ClientUserID)
	assert.Equal(t, c, resp.Queue[1].ClientUserID)
	assert.Equal(t, a, resp.Queue[2].ClientUserID)
}

func TestDeleteSecondAttemptNotFound(t *testing.T) {
	clientID := uuid.New()
	svc, repo := newTestService(clientID)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, clientID, &model.QueueEntryRequest{
		ProfessionType: "medical_doctor",
		TargetDate:     date(2026, 9, 7),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, clientID, date(2026, 9, 7), "medical_doctor"))
	assert.Empty(t, repo.entries)

	// The entry is gone, so the second delete has nothing to remove.
	err = svc.Delete(ctx, clientID, date(2026, 9, 7), "medical_doctor")
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}
