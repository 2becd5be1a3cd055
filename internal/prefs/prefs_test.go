package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestPrefs(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestThemeFallsBackToTerminal(t *testing.T) {
	s := openTestPrefs(t)

	s.detectDark = func() bool { return true }
	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	s.detectDark = func() bool { return false }
	theme, err = s.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}

func TestStoredThemeWins(t *testing.T) {
	s := openTestPrefs(t)
	s.detectDark = func() bool { return true }

	require.NoError(t, s.SetTheme(ThemeLight))
	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}

func TestThemePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetTheme(ThemeDark))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	s.detectDark = func() bool { return false }
	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)
}

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme("light")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	_, err = ParseTheme("solarized")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	s := openTestPrefs(t)

	token, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken("abc.def.ghi"))
	token, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, s.SetToken(""))
	token, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestGenericGet(t *testing.T) {
	s := openTestPrefs(t)

	_, err := Get[int](s, "missing")
	assert.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, Save(s, "count", 3))
	n, err := Get[int](s, "count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
