package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"openfinna-go/lib/finna"
)

func TestStoreRoundtrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	session, building, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, session)
	require.Nil(t, building)

	err = store.Save("sess-1", &finna.Building{Id: "0/vaski/", Name: "Vaski"})
	require.NoError(t, err)

	session, building, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "sess-1", session)
	require.Equal(t, &finna.Building{Id: "0/vaski/", Name: "Vaski"}, building)

	// a session-only save keeps the stored building
	err = store.Save("sess-2", nil)
	require.NoError(t, err)
	session, building, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "sess-2", session)
	require.NotNil(t, building)

	require.NoError(t, store.Clear())
	session, building, err = store.Load()
	require.NoError(t, err)
	require.Empty(t, session)
	require.Nil(t, building)
}
