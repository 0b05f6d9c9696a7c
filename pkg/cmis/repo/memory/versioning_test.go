package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

func createSeries(t *testing.T, s *memory.Store, name string, major, checkedOut bool) (*memory.VersionSeries, *memory.Version) {
	t.Helper()
	series := memory.NewVersionSeries(memory.NewObject(name, "cmis:document", cmis.BaseTypeDocument, "alice"))
	first := memory.NewVersion(series, memory.NewObject(name, "cmis:document", cmis.BaseTypeDocument, "alice"),
		cmis.NewContentStream([]byte("v1"), "v1.txt", "text/plain"))
	err := s.Update(func(tx *memory.Tx) error {
		if _, err := tx.Create(series, tx.Root()); err != nil {
			return err
		}
		_, err := tx.AddInitialVersion(series, first, major, checkedOut, "alice")
		return err
	})
	require.NoError(t, err)
	return series, first
}

func TestVersioning_Lifecycle(t *testing.T) {
	s := memory.New()
	series, first := createSeries(t, s, "doc", true, false)

	err := s.Update(func(tx *memory.Tx) error {
		require.Len(t, tx.Versions(series), 1)
		assert.Equal(t, "1.0", first.Label())
		assert.True(t, tx.IsLatest(first))
		assert.False(t, series.CheckedOut())

		t.Run("check out then cancel", func(t *testing.T) {
			pwc, copied, err := tx.CheckOut(series, "bob")
			require.NoError(t, err)
			assert.True(t, copied)
			assert.True(t, pwc.IsPWC())
			assert.Equal(t, "pwc", pwc.Label())
			assert.Equal(t, "bob", series.CheckedOutBy())
			assert.Same(t, pwc, series.WorkingCopy())

			_, _, err = tx.CheckOut(series, "carol")
			assert.ErrorIs(t, err, cmis.ErrUpdateConflict)

			require.NoError(t, tx.CancelCheckOut(pwc))
			assert.False(t, series.CheckedOut())
			assert.Len(t, tx.Versions(series), 1)
			_, err = tx.Get(pwc.ID)
			assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		})

		t.Run("check out then check in", func(t *testing.T) {
			pwc, _, err := tx.CheckOut(series, "bob")
			require.NoError(t, err)
			require.NoError(t, tx.CheckIn(pwc, false, "minor fix", "bob"))
			assert.False(t, series.CheckedOut())
			require.Len(t, tx.Versions(series), 2)
			assert.Equal(t, "1.1", pwc.Label())
			assert.Equal(t, "minor fix", pwc.Comment)
			assert.False(t, pwc.IsPWC())

			latest, err := tx.LatestVersion(series, false)
			require.NoError(t, err)
			assert.Same(t, pwc, latest)
			latestMajor, err := tx.LatestVersion(series, true)
			require.NoError(t, err)
			assert.Same(t, first, latestMajor)
			assert.True(t, tx.IsLatestMajor(first))
			assert.False(t, tx.IsLatest(first))

			assert.ErrorIs(t, tx.CheckIn(pwc, true, "", "bob"), cmis.ErrUpdateConflict)
		})

		t.Run("major check in", func(t *testing.T) {
			pwc, _, err := tx.CheckOut(series, "bob")
			require.NoError(t, err)
			assert.Len(t, tx.CheckedOut(), 1)
			require.NoError(t, tx.CheckIn(pwc, true, "", "bob"))
			assert.Equal(t, "2.0", pwc.Label())
			assert.Empty(t, tx.CheckedOut())
		})
		return nil
	})
	require.NoError(t, err)
}

func TestVersioning_Delete(t *testing.T) {
	s := memory.New()
	series, first := createSeries(t, s, "doc", true, false)

	var second *memory.Version
	err := s.Update(func(tx *memory.Tx) error {
		pwc, _, err := tx.CheckOut(series, "alice")
		if err != nil {
			return err
		}
		second = pwc
		return tx.CheckIn(pwc, true, "", "alice")
	})
	require.NoError(t, err)

	err = s.Update(func(tx *memory.Tx) error {
		require.NoError(t, tx.Delete(first.ID, false))
		assert.Len(t, tx.Versions(series), 1)
		_, err := tx.Get(series.ID)
		require.NoError(t, err)

		pwc, _, err := tx.CheckOut(series, "alice")
		require.NoError(t, err)
		require.NoError(t, tx.Delete(pwc.ID, false))
		assert.False(t, series.CheckedOut())

		require.NoError(t, tx.Delete(second.ID, false))
		_, err = tx.Get(series.ID)
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		assert.Equal(t, 0, tx.Root().Len())
		return nil
	})
	require.NoError(t, err)
}

func TestVersioning_CreatedCheckedOut(t *testing.T) {
	s := memory.New()
	series, pwc := createSeries(t, s, "draft", false, true)

	err := s.Update(func(tx *memory.Tx) error {
		assert.True(t, series.CheckedOut())
		assert.Empty(t, tx.Versions(series))
		latest, err := tx.LatestVersion(series, false)
		require.NoError(t, err)
		assert.Same(t, pwc, latest)
		_, err = tx.LatestVersion(series, true)
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)

		require.NoError(t, tx.CancelCheckOut(pwc))
		_, err = tx.Get(series.ID)
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
		return nil
	})
	require.NoError(t, err)

	series, pwc = createSeries(t, s, "draft", false, true)
	err = s.Update(func(tx *memory.Tx) error {
		require.NoError(t, tx.CheckIn(pwc, false, "", "alice"))
		assert.Equal(t, "0.1", pwc.Label())
		assert.Len(t, tx.Versions(series), 1)
		return nil
	})
	require.NoError(t, err)
}

func TestVersioning_AllVersionsDelete(t *testing.T) {
	s := memory.New()
	series, first := createSeries(t, s, "doc", true, false)
	rel := memory.NewRelationship(memory.NewObject("r", "cmis:relationship", cmis.BaseTypeRelationship, "alice"), first.ID, s.RootID())
	mustCreate(t, s, rel, nil)

	err := s.Update(func(tx *memory.Tx) error {
		if _, _, err := tx.CheckOut(series, "alice"); err != nil {
			return err
		}
		return tx.Delete(first.ID, true)
	})
	require.NoError(t, err)

	err = s.View(func(tx *memory.Tx) error {
		assert.Equal(t, 1, tx.Len(), "only the root remains")
		return nil
	})
	require.NoError(t, err)
}
