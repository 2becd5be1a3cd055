package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pulsetrack/internal/domain"
)

func TestResolve(t *testing.T) {
	classes := []domain.ClassItem{
		{ID: "a1b2c3d4-0000", Name: "Biology"},
		{ID: "a1ffffff-0000", Name: "Chemistry"},
		{ID: "99999999-0000", Name: "biology lab"},
	}

	c, err := resolve(classes, "a1b2", "class", classID, className)
	require.NoError(t, err)
	assert.Equal(t, "Biology", c.Name)

	c, err = resolve(classes, "CHEMISTRY", "class", classID, className)
	require.NoError(t, err)
	assert.Equal(t, "a1ffffff-0000", c.ID)

	_, err = resolve(classes, "a1", "class", classID, className)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolve(classes, "Physics", "class", classID, className)
	assert.EqualError(t, err, "class not found: Physics")
}

func TestParseCategory(t *testing.T) {
	wc, err := parseCategory("Exams = 40%")
	require.NoError(t, err)
	assert.Equal(t, "Exams", wc.Label)
	assert.Equal(t, 40.0, wc.Weight)
	assert.NotEmpty(t, wc.ID)

	_, err = parseCategory("Exams")
	assert.Error(t, err)
	_, err = parseCategory("Exams=lots")
	assert.Error(t, err)
	_, err = parseCategory("Exams=140")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, ok := parseLevel("overloaded")
	assert.True(t, ok)
	assert.Equal(t, domain.WorkloadOverloaded, level)

	_, ok = parseLevel("swamped")
	assert.False(t, ok)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0, 10, 20))
	assert.Equal(t, "", bar(3, 0, 20))
	assert.Equal(t, "██████████", bar(5, 10, 20))
	// Small non-zero counts still show one cell
	assert.Equal(t, "█", bar(1, 100, 20))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "line one line two", truncate("line one\nline two", 40))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestShortAndFormatGrade(t *testing.T) {
	assert.Equal(t, "12345678", short("1234567890"))
	assert.Equal(t, "abc", short("abc"))

	g := 87.5
	assert.Equal(t, "87.5", formatGrade(&g))
	assert.Equal(t, "-", formatGrade(nil))
}
