package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pulsetrack/internal/domain"
)

func sampleState() domain.State {
	g := 87.5
	return domain.State{
		User:    domain.UserProfile{ID: "u1", Name: "Ada"},
		Classes: []domain.ClassItem{{ID: "c1", Name: "Biology 210", Credits: 3}},
		Assignments: []domain.Assignment{
			{ID: "a1", ClassID: "c1", Title: "Lab, part 1", DueDate: "2026-03-08", DueTime: "23:59", Status: domain.StatusOnTrack, Priority: domain.PriorityHigh, Grade: &g},
			{ID: "a2", ClassID: "gone", Title: "Essay", DueDate: "2026-03-09", Status: domain.StatusUrgent, Priority: domain.PriorityLow},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleState()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Assignment,Class,Due Date,Due Time,Status,Priority,Grade", lines[0])
	assert.Equal(t, `"Lab, part 1",Biology 210,2026-03-08,23:59,On Track,High,87.5`, lines[1])
	assert.Equal(t, "Essay,,2026-03-09,,Urgent,Low,", lines[2])
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, sampleState()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//PulseTrack//EN\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "UID:a1@pulsetrack\r\n")
	assert.Contains(t, out, "DTSTART:20260308T235900Z\r\n")
	assert.Contains(t, out, "DTSTAMP:20260309T000000Z\r\n")
	assert.Contains(t, out, `SUMMARY:Lab\, part 1`)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sampleState()))

	var decoded domain.State
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Ada", decoded.User.Name)
	require.Len(t, decoded.Assignments, 2)
	assert.Nil(t, decoded.Assignments[1].Grade)
	assert.Contains(t, buf.String(), "\n  \"user\"")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("ICS")
	require.NoError(t, err)
	assert.Equal(t, ICS, f)
	assert.Equal(t, "pulsetrack-calendar.ics", f.FileName())
	assert.Equal(t, "text/calendar", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
