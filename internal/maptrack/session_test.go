package maptrack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReadCSV(t *testing.T, csv string) *Dataset {
	t.Helper()
	ds, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return ds
}

func TestReadCSV_MissingRequiredColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,event_detail\n1,x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_name")

	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestDataset_Cell(t *testing.T) {
	ds := mustReadCSV(t, "timestamp,event_name,event_detail\n100,click\n")
	// Ragged row: missing trailing cell reads as "".
	assert.Equal(t, "", ds.Cell(0, "event_detail"))
	assert.Equal(t, "click", ds.Cell(0, "event_name"))
	assert.Equal(t, "", ds.Cell(0, "no_such_column"))
	assert.Equal(t, "", ds.Cell(5, "event_name"))
}

func TestAssemble_ExplicitTaskColumn(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,task
100,movestart,"50.1, 14.4",T1
200,moveend,"50.2, 14.5",T1
300,click,,
400,popupopen,Prague,T2
`)
	session, err := Assemble(ds, "study.csv", AssembleOptions{})
	require.NoError(t, err)

	require.Len(t, session.Events, 4)
	assert.Equal(t, "T1", session.Events[0].TaskID)
	assert.Equal(t, "T1", session.Events[1].TaskID)
	assert.Equal(t, "", session.Events[2].TaskID)
	assert.Equal(t, "T2", session.Events[3].TaskID)

	require.Len(t, session.Tasks, 2)
	assert.Len(t, session.Tasks["T1"].Events, 2)
	assert.Len(t, session.Tasks["T2"].Events, 1)
	assert.Equal(t, []string{"T1", "T2"}, session.ListTaskIDs())
}

func TestAssemble_FallbackSegmentation(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail
10,click,before-any-task
20,setting task,01A-v1
30,zoom in,7
40,setting task,02B-v1
50,moveend,"50.1, 14.4"
`)
	session, err := Assemble(ds, "study.csv", AssembleOptions{})
	require.NoError(t, err)

	// Rows before the first switch carry no task.
	assert.Equal(t, "", session.Events[0].TaskID)
	// The switching row itself is already labeled with the new task.
	assert.Equal(t, "01A-v1", session.Events[1].TaskID)
	assert.Equal(t, "01A-v1", session.Events[2].TaskID)
	assert.Equal(t, "02B-v1", session.Events[3].TaskID)
	assert.Equal(t, "02B-v1", session.Events[4].TaskID)

	assert.Equal(t, []string{"01A-v1", "02B-v1"}, session.ListTaskIDs())
	assert.Len(t, session.Tasks["01A-v1"].Events, 2)
	assert.Len(t, session.Tasks["02B-v1"].Events, 2)
}

func TestAssemble_FallbackIgnoresBlankSwitch(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail
10,setting task,T1
20,setting task,
30,click,x
`)
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)

	// A "setting task" with no usable id leaves the current task alone.
	assert.Equal(t, "T1", session.Events[1].TaskID)
	assert.Equal(t, "T1", session.Events[2].TaskID)
}

func TestAssemble_ResidualRuleInExplicitMode(t *testing.T) {
	// Task column exists but is blank exactly on the switching row.
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,task
10,setting task,T9,
20,click,x,T1
`)
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, "T9", session.Events[0].TaskID)
	assert.Equal(t, "T1", session.Events[1].TaskID)
	assert.Equal(t, []string{"T9", "T1"}, session.ListTaskIDs())
}

func TestAssemble_TimestampViewportLenience(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,viewportSize
broken,click,x,1280x585
2000,click,y,bogus
NaN,click,z,800x600
`)
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), session.Events[0].TimestampMS)
	require.NotNil(t, session.Events[0].Viewport)
	assert.Equal(t, Viewport{Width: 1280, Height: 585}, *session.Events[0].Viewport)
	assert.Equal(t, int64(2000), session.Events[1].TimestampMS)
	assert.Nil(t, session.Events[1].Viewport)
	// A NaN timestamp is substituted with 0, never a wrapped int64.
	assert.Equal(t, int64(0), session.Events[2].TimestampMS)
}

func TestEventJSON_OmitsMissingViewport(t *testing.T) {
	ds := mustReadCSV(t, "timestamp,event_name,event_detail\n1,a,x\n")
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)

	raw, err := json.Marshal(session.Events[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"viewport"`)
}

func TestAssemble_IdentityDerivation(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,UserID
1,click,x, u42
2,click,y,u43
`)
	session, err := Assemble(ds, "MAP-2024_run#3.csv", AssembleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "MAP-2024_run_3", session.SessionID)
	assert.Equal(t, "u42", session.UserID, "user id comes from the first row, trimmed")

	session, err = Assemble(ds, "x.csv", AssembleOptions{
		SessionIDOverride: "custom",
		UserIDOverride:    "override-user",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", session.SessionID)
	assert.Equal(t, "override-user", session.UserID)
}

func TestAssemble_EventOrderMatchesInput(t *testing.T) {
	ds := mustReadCSV(t, `timestamp,event_name,event_detail,task
300,a,,T1
100,b,,T2
200,c,,T1
`)
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)

	require.Len(t, session.Events, 3)
	for i, ev := range session.Events {
		assert.Equal(t, i, ev.RowIndex)
	}
	// Streams preserve master-list order, not timestamp order.
	names := []string{}
	for _, ev := range session.Tasks["T1"].Events {
		names = append(names, ev.EventName)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestAssemble_EventsSharedWithStreams(t *testing.T) {
	ds := mustReadCSV(t, "timestamp,event_name,event_detail,task\n1,a,,T1\n")
	session, err := Assemble(ds, "s.csv", AssembleOptions{})
	require.NoError(t, err)
	assert.Same(t, session.Events[0], session.Tasks["T1"].Events[0])
}
