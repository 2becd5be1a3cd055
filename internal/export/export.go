// Package export renders a planner snapshot as JSON, CSV or iCalendar.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// Format is an export file format
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	ICS  Format = "ics"
)

// FileName is the default download name for each format.
func (f Format) FileName() string {
	switch f {
	case CSV:
		return "pulsetrack-assignments.csv"
	case ICS:
		return "pulsetrack-calendar.ics"
	}
	return "pulsetrack-export.json"
}

// ContentType is the MIME type for each format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case ICS:
		return "text/calendar"
	}
	return "application/json"
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, CSV, ICS:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json, csv or ics)", s)
}

// Write renders state in format f.
func Write(w io.Writer, f Format, state domain.State) error {
	switch f {
	case CSV:
		return WriteCSV(w, state)
	case ICS:
		return WriteICS(w, state)
	}
	return WriteJSON(w, state)
}

// WriteJSON writes the full state, indented.
func WriteJSON(w io.Writer, state domain.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}

var csvHeader = []string{"Assignment", "Class", "Due Date", "Due Time", "Status", "Priority", "Grade"}

// WriteCSV writes one row per assignment. The class column is empty when the
// class is unknown and the grade column is empty when ungraded.
func WriteCSV(w io.Writer, state domain.State) error {
	names := make(map[string]string, len(state.Classes))
	for _, c := range state.Classes {
		names[c.ID] = c.Name
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range state.Assignments {
		var grade string
		if a.Grade != nil {
			grade = strconv.FormatFloat(*a.Grade, 'f', -1, 64)
		}
		row := []string{a.Title, names[a.ClassID], a.DueDate, a.DueTime, string(a.Status), string(a.Priority), grade}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", a.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteICS writes one VEVENT per assignment. Lines end in CRLF.
func WriteICS(w io.Writer, state domain.State) error {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//PulseTrack//EN"}
	for _, a := range state.Assignments {
		stamp := icsStamp(a.DueDate, a.DueTime)
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+a.ID+"@pulsetrack",
			"DTSTAMP:"+stamp,
			"DTSTART:"+stamp,
			"SUMMARY:"+escapeText(a.Title),
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")

	if _, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n"); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}

// icsStamp formats YYYYMMDDTHHMM00Z from a date and HH:MM time.
func icsStamp(date, clock string) string {
	hhmm := strings.ReplaceAll(clock, ":", "")
	if hhmm == "" {
		hhmm = "0000"
	}
	return strings.ReplaceAll(date, "-", "") + "T" + hhmm + "00Z"
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
