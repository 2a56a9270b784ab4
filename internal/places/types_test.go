package places

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Kantor", Found("Kantor", "aria-label").String())
	require.Equal(t, Sentinel, Missing().String())
	require.Equal(t, "", Found("", "x").String())
}

func TestFailureRecordIsFullySentineled(t *testing.T) {
	t.Parallel()

	rec := FailureRecord(WorkItem{ID: "7", Query: "Toko Roti"}, "no candidates")
	require.True(t, rec.Failed())

	values := rec.Values()
	require.Equal(t, "7", values["id"])
	require.Equal(t, "Toko Roti", values["query"])
	require.Equal(t, string(StatusError), values["status"])
	for _, col := range Columns {
		switch col {
		case "id", "query", "status", "error":
			continue
		}
		require.Equal(t, Sentinel, values[col], "column %s", col)
	}
}

func TestRowFollowsColumnOrder(t *testing.T) {
	t.Parallel()

	rec := PlaceRecord{
		ID:          "1",
		Query:       "q",
		DisplayName: Found("Name", "heading"),
		Status:      StatusActive,
	}
	row := rec.Row([]string{"status", "display_name", "unknown", "id"})
	require.Equal(t, []string{"Aktif", "Name", Sentinel, "1"}, row)
}

func TestCanonicalColumnMapsLegacyHeaders(t *testing.T) {
	t.Parallel()

	require.Equal(t, "id", CanonicalColumn("idsbr"))
	require.Equal(t, "query", CanonicalColumn("Query"))
	require.Equal(t, "display_name", CanonicalColumn("Actual Place Name"))
	require.Equal(t, "phone", CanonicalColumn("Phone Number"))
	require.Equal(t, "open_status", CanonicalColumn("Open Status"))
	require.Equal(t, "operating_hours", CanonicalColumn(" Operation Hours "))
	require.Equal(t, "latitude", CanonicalColumn("Latitude"))
	require.Equal(t, "notes", CanonicalColumn("notes"))
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Jl. Raya  No. 1", CleanText(" Jl. Raya\r\nNo. 1 "))
	require.Equal(t, "", CleanText(""))
}

func TestStatusSpecificity(t *testing.T) {
	t.Parallel()

	require.Greater(t, StatusPermanentlyClosed.Specificity(), StatusTemporarilyClosed.Specificity())
	require.Greater(t, StatusTemporarilyClosed.Specificity(), StatusClosed.Specificity())
	require.Greater(t, StatusClosed.Specificity(), StatusActive.Specificity())
}

func TestResultFailed(t *testing.T) {
	t.Parallel()

	item := WorkItem{ID: "1", Query: "q"}
	require.True(t, Result{Item: item}.Failed())
	require.True(t, Result{Item: item, Records: []PlaceRecord{FailureRecord(item, "x")}}.Failed())
	ok := PlaceRecord{ID: "1", DisplayName: Found("A", "s"), Status: StatusActive}
	require.False(t, Result{Item: item, Records: []PlaceRecord{ok}}.Failed())
}
