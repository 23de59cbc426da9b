package localization_test

import (
	"testing"
	"testing/fstest"

	"strangerchat/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledTablesHaveSameKeys(t *testing.T) {
	l, err := localization.NewLocalizer("")
	require.NoError(t, err)

	for _, key := range []string{"welcome", "searching", "partner_found", "partner_left", "message_failed", "room_joined", "error"} {
		assert.NotEqual(t, key, l.GetString("en", key), "en missing %s", key)
		assert.NotEqual(t, l.GetString("en", key), l.GetString("uk", key), "uk missing %s", key)
	}
}

func TestGetStringFallsBack(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json":   {Data: []byte(`{"hello":"Hello","only_en":"English only"}`)},
		"uk.json":   {Data: []byte(`{"hello":"Привіт"}`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizerFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "hello"))
	assert.Equal(t, "English only", l.GetString("uk", "only_en"))
	assert.Equal(t, "Hello", l.GetString("de", "hello"))
	assert.Equal(t, "missing", l.GetString("uk", "missing"))
}

func TestNormalize(t *testing.T) {
	l, err := localization.NewLocalizer("")
	require.NoError(t, err)

	assert.Equal(t, "uk", l.Normalize("uk-UA"))
	assert.Equal(t, "en", l.Normalize("EN"))
	assert.Equal(t, "en", l.Normalize("fr"))
	assert.Equal(t, "en", l.Normalize(""))
}

func TestFormat(t *testing.T) {
	l, err := localization.NewLocalizer("")
	require.NoError(t, err)

	assert.Equal(t, "You are now chatting with Sarah. Say hi!", l.Format("en", "partner_found", "Sarah"))
}

func TestNewLocalizerFSRejectsBadInput(t *testing.T) {
	_, err := localization.NewLocalizerFS(fstest.MapFS{"en.json": {Data: []byte("{")}})
	assert.Error(t, err)

	_, err = localization.NewLocalizerFS(fstest.MapFS{})
	assert.Error(t, err)
}
