package training

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileRepo(t *testing.T) *FileRepo {
	t.Helper()
	repo, err := NewFileRepo(filepath.Join(t.TempDir(), "data", "sessions.json"))
	require.NoError(t, err)
	return repo
}

func TestFileRepo_EmptyFileCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sessions.json")
	repo, err := NewFileRepo(path)
	require.NoError(t, err)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(content))
}

func TestFileRepo_AddAssignsIncrementingIDs(t *testing.T) {
	ctx := context.Background()
	repo := newTestFileRepo(t)

	s1 := makeSession("2025-03-14", "Judo", 60, 70, IntensityMedium)
	s2 := makeSession("2025-03-15", "MMA", 90, 80, IntensityHigh)

	added1, err := repo.Add(ctx, &s1)
	require.NoError(t, err)
	added2, err := repo.Add(ctx, &s2)
	require.NoError(t, err)

	assert.Equal(t, 1, added1.ID)
	assert.Equal(t, 2, added2.ID)
	assert.False(t, added1.CreatedAt.IsZero())

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	// newest first
	assert.Equal(t, "2025-03-15", sessions[0].Fecha)
}

func TestFileRepo_IDsNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestFileRepo(t)

	s1 := makeSession("2025-03-14", "Judo", 60, 70, IntensityMedium)
	s2 := makeSession("2025-03-15", "MMA", 90, 80, IntensityHigh)
	_, err := repo.Add(ctx, &s1)
	require.NoError(t, err)
	added2, err := repo.Add(ctx, &s2)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, 1))

	s3 := makeSession("2025-03-16", "Cardio", 30, 70, IntensityLow)
	added3, err := repo.Add(ctx, &s3)
	require.NoError(t, err)
	assert.Equal(t, added2.ID+1, added3.ID)
}

func TestFileRepo_GetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestFileRepo(t)

	s := makeSession("2025-03-15", "MMA", 90, 80, IntensityHigh)
	added, err := repo.Add(ctx, &s)
	require.NoError(t, err)

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "MMA", got.Tipo)

	update := makeSession("2025-03-15", "Judo", 60, 80, IntensityMedium)
	update.ID = added.ID
	updated, err := repo.Update(ctx, &update)
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, "Judo", updated.Tipo)
	assert.Equal(t, added.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.False(t, updated.UpdatedAt.IsZero())

	require.NoError(t, repo.Delete(ctx, added.ID))

	_, err = repo.Get(ctx, added.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, added.ID), ErrSessionNotFound)

	update.ID = 999
	_, err = repo.Update(ctx, &update)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFileRepo_LegacyRecordsWithoutIDs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")
	legacy := `[
		{"fecha": "2025-03-14", "tipo": "Judo", "tiempo": 60, "intensidad": "Media"},
		{"fecha": "2025-03-15", "tipo": "MMA", "tiempo": 90, "intensidad": "Alta"},
		{"id": 7, "fecha": "2025-03-16", "tipo": "Cardio", "tiempo": 30, "intensidad": "Baja"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	repo, err := NewFileRepo(path)
	require.NoError(t, err)

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	ids := map[int]bool{}
	for _, s := range sessions {
		ids[s.ID] = true
	}
	// id-less records get their file position, the explicit id survives
	assert.Equal(t, map[int]bool{0: true, 1: true, 7: true}, ids)

	require.NoError(t, repo.Delete(ctx, 0))
	sessions, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestFileRepo_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	repo, err := NewFileRepo(path)
	require.NoError(t, err)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFileRepo_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	repo, err := NewFileRepo(path)
	require.NoError(t, err)
	s := makeSession("2025-03-15", "MMA", 90, 80, IntensityHigh)
	s.Notas = gofakeit.Sentence(8)
	_, err = repo.Add(ctx, &s)
	require.NoError(t, err)

	reopened, err := NewFileRepo(path)
	require.NoError(t, err)
	sessions, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "MMA", sessions[0].Tipo)
	assert.Equal(t, s.Notas, sessions[0].Notas)
}
