package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringArrayScan(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`["a.jpg","b.jpg"]`)))
	require.Equal(t, StringArray{"a.jpg", "b.jpg"}, a)

	require.NoError(t, a.Scan(`["c.jpg"]`))
	require.Equal(t, StringArray{"c.jpg"}, a)

	// corrupt rows scan to empty, never an error
	require.NoError(t, a.Scan([]byte(`not json`)))
	require.Empty(t, a)

	require.NoError(t, a.Scan(nil))
	require.Nil(t, a)
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"a.jpg"}.Value()
	require.NoError(t, err)
	require.Equal(t, `["a.jpg"]`, v)

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"reason":"retry"}`)))
	require.Equal(t, "retry", m["reason"])

	require.NoError(t, m.Scan([]byte(`{broken`)))
	require.Empty(t, m)

	require.NoError(t, m.Scan(nil))
	require.Nil(t, m)
}

func TestActionHistoryHasEntityRef(t *testing.T) {
	require.False(t, ActionHistory{}.HasEntityRef())

	id := uint(1)
	require.True(t, ActionHistory{ServiceRequestID: &id}.HasEntityRef())
	require.True(t, ActionHistory{PaymentID: &id}.HasEntityRef())
}
