package indexer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/core/events"
	"launchpad/core/types"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dsn
}

func purchase(projectID, saleID, buyer string) events.Event {
	return events.Wrap(&types.Event{
		Type: "sale.purchased",
		Attributes: map[string]string{
			"projectId": projectID,
			"saleId":    saleID,
			"buyer":     buyer,
			"quantity":  "1",
		},
	})
}

func TestRecordAndFilter(t *testing.T) {
	store, _ := openTestStore(t)
	buyer := "0xABCDEF0000000000000000000000000000000001"
	store.Emit(purchase("1", "1", buyer))
	store.Emit(purchase("1", "2", "0x0000000000000000000000000000000000000002"))
	store.Emit(purchase("2", "3", buyer))
	store.Emit(events.Wrap(&types.Event{Type: "project.ended", Attributes: map[string]string{"projectId": "1"}}))

	all, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, evt := range all {
		require.Equal(t, uint64(i+1), evt.Sequence)
	}

	one := uint64(1)
	byProject, err := store.List(Filter{ProjectID: &one})
	require.NoError(t, err)
	require.Len(t, byProject, 3)

	purchases, err := store.List(Filter{Type: "sale.purchased", Account: buyer})
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	attrs, err := purchases[1].Attrs()
	require.NoError(t, err)
	require.Equal(t, "3", attrs["saleId"])

	page, err := store.List(Filter{After: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(3), page[0].Sequence)
}

func TestSequenceResumesAfterReopen(t *testing.T) {
	store, dsn := openTestStore(t)
	_, err := store.Record(purchase("1", "1", "0x01"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	defer reopened.Close()
	row, err := reopened.Record(purchase("1", "1", "0x01"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), row.Sequence)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
}
