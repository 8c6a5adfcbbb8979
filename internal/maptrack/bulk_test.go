package maptrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByUser(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,userid
1,a,,u1
2,b,,u1
3,c,,u2
4,d,,
5,e,,u1
`)
	groups, err := SplitByUser(ds)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "u1", groups[0].UserID)
	assert.Equal(t, 3, groups[0].Dataset.Len())
	assert.Equal(t, "a", groups[0].Dataset.Cell(0, "event_name"))
	assert.Equal(t, "e", groups[0].Dataset.Cell(2, "event_name"))

	assert.Equal(t, "u2", groups[1].UserID)
	assert.Equal(t, 1, groups[1].Dataset.Len())
}

func TestSplitByUser_SchemaErrors(t *testing.T) {
	ds := mustReadCSV(t, "timestamp,event_name,event_detail\n1,a,\n")
	_, err := SplitByUser(ds)
	require.Error(t, err)

	ds = mustReadCSV(t, "timestamp,event_name,event_detail,userid\n1,a,,\n2,b,,\n")
	_, err = SplitByUser(ds)
	require.Error(t, err)
}

func TestSanitizeUserID(t *testing.T) {
	assert.Equal(t, "u_1", SanitizeUserID("u 1"))
	assert.Equal(t, "a_b_c", SanitizeUserID("a@b#c"))
	assert.Equal(t, "user", SanitizeUserID(""))
}

func TestSubSessionID(t *testing.T) {
	assert.Equal(t, "base__u_1", SubSessionID("base", "u#1"))
}
