package store

import (
	"os"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"overrides/internal/engine/override"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "overrides.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func zooSnapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	snap := model.NewSnapshot()
	decls := []model.TypeDecl{
		{ID: "zoo.Pet", Kind: model.KindInterface, Methods: []model.Method{{Name: "speak", Flags: model.FlagPublic | model.FlagAbstract}}},
		{ID: "zoo.Animal", Methods: []model.Method{
			{Name: "Animal", Constructor: true, Flags: model.FlagProtected},
			{Name: "speak", Flags: model.FlagPublic, Parameters: "()", Line: 4},
			{Name: "id", Flags: model.FlagPrivate | model.FlagStatic},
		}, File: "zoo/Animal.java", Line: 2},
		{ID: "zoo.Dog", Superclass: "zoo.Animal", Interfaces: []model.TypeID{"zoo.Pet", "java.io.Serializable"}, Methods: []model.Method{{Name: "speak", Flags: model.FlagPublic}}},
		{ID: "zoo.Puppy", Superclass: "zoo.Dog", Methods: []model.Method{{Name: "speak", Flags: model.FlagPublic}}},
		{ID: "java.io.Serializable", Kind: model.KindExternal},
	}
	for _, d := range decls {
		require.NoError(t, snap.AddType(d))
	}
	return snap
}

func TestStore_SaveLatestLoad(t *testing.T) {
	s := openTestStore(t)
	snap := zooSnapshot(t)

	info, err := s.Save("zoo", snap, "abc123")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "zoo", info.ProjectKey)
	assert.Equal(t, 5, info.Types)
	assert.Equal(t, 6, info.Methods)

	latest, err := s.Latest("zoo")
	require.NoError(t, err)
	assert.Equal(t, info.ID, latest.ID)
	assert.Equal(t, "abc123", latest.SourceHash)
	assert.WithinDuration(t, info.CreatedAt, latest.CreatedAt, 0)

	loaded, err := s.Load(info.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Types(), loaded.Types())
}

func TestStore_LatestPicksNewestPerProject(t *testing.T) {
	s := openTestStore(t)
	snap := zooSnapshot(t)

	first, err := s.Save("zoo", snap, "one")
	require.NoError(t, err)
	second, err := s.Save("zoo", snap, "two")
	require.NoError(t, err)
	other, err := s.Save("", snap, "default")
	require.NoError(t, err)
	assert.Equal(t, DefaultProjectKey, other.ProjectKey)

	latest, err := s.Latest("zoo")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)

	latest, err = s.Latest("  ")
	require.NoError(t, err)
	assert.Equal(t, other.ID, latest.ID)
}

func TestStore_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Latest("missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)

	_, err = s.Load("no-such-id")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)

	_, err = s.Hierarchy("no-such-id")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)
}

func TestStore_SaveRejectsNil(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Save("zoo", nil, "")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)
	snap := zooSnapshot(t)

	var last SnapshotInfo
	for i := 0; i < 4; i++ {
		info, err := s.Save("zoo", snap, "")
		require.NoError(t, err)
		last = info
	}

	removed, err := s.Prune("zoo", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	latest, err := s.Latest("zoo")
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)

	loaded, err := s.Load(last.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Len())

	_, err = s.Prune("zoo", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestStore_HierarchyAnswersResolverQueries(t *testing.T) {
	s := openTestStore(t)
	info, err := s.Save("zoo", zooSnapshot(t), "")
	require.NoError(t, err)

	h, err := s.Hierarchy(info.ID)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, info.ID, h.SnapshotID())

	supers, err := h.Supertypes("zoo.Dog")
	require.NoError(t, err)
	assert.Equal(t, []model.TypeID{"zoo.Animal", "zoo.Pet", "java.io.Serializable"}, supers)

	unknown, err := h.Methods("zoo.Unknown")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	r := override.NewResolver(model.NewCachedHierarchy(h, 16))
	puppy := model.Method{DeclaringType: "zoo.Puppy", Name: "speak", Flags: model.FlagPublic}

	got, err := r.FindDeclaringMethod(puppy, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "zoo.Animal#speak", got.String())
	assert.Equal(t, 4, got.Line)
}

func TestStore_ClosedDatabaseSurfacesBackingError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "overrides.db"))
	require.NoError(t, err)
	info, err := s.Save("zoo", zooSnapshot(t), "")
	require.NoError(t, err)

	h, err := s.Hierarchy(info.ID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = h.Methods("zoo.Dog")
	assert.True(t, errors.IsCode(err, errors.CodeModelBacking), "got %v", err)

	r := override.NewResolver(h)
	got, err := r.FindOverriddenMethod(model.Method{DeclaringType: "zoo.Puppy", Name: "speak"}, false)
	assert.Nil(t, got)
	assert.True(t, errors.IsCode(err, errors.CodeModelBacking), "got %v", err)

	_ = h.Close()
	assert.NoError(t, h.Close(), "Close must be idempotent")
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("   ")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	dir := t.TempDir()
	_, err = Open(dir)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	path := filepath.Join(dir, "again.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	// Reopening runs migrations idempotently.
	s, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())
}
