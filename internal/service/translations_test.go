package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/testutil"
)

func newTranslationStore(t *testing.T) (*testutil.FakeAPI, *TranslationStore) {
	t.Helper()
	api, c := newTestAPI(t)
	return api, NewTranslationStore(TranslationStoreOptions{API: c})
}

func TestNewTranslationStore_PanicsWithoutAPI(t *testing.T) {
	assert.Panics(t, func() { NewTranslationStore(TranslationStoreOptions{}) })
}

func TestTranslationStore_Fetch(t *testing.T) {
	api, s := newTranslationStore(t)
	api.JSON("GET /translations/post/7", http.StatusOK, RecordTranslations{
		"title": {"de": "Hallo", "fr": "Bonjour"},
	})

	rec, err := s.Fetch(context.Background(), "post", 7)
	require.NoError(t, err)
	assert.Equal(t, "Hallo", rec["title"]["de"])
	assert.True(t, s.Has("post", 7, "title", "fr"))
	assert.False(t, s.Has("post", 7, "title", "it"))
	assert.False(t, s.Has("post", 8, "title", "de"))
	assert.Equal(t, FieldTranslations{"de": "Hallo", "fr": "Bonjour"}, s.Field("post", 7, "title"))

	copied := s.Record("post", 7)
	copied["title"]["de"] = "changed"
	assert.Equal(t, "Hallo", s.Field("post", 7, "title")["de"], "Record returns a copy")

	s.Forget("post", 7)
	assert.Empty(t, s.Record("post", 7))
	s.Forget("unknown", 1)

	_, err = s.Fetch(context.Background(), "", 7)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTranslationStore_SaveField(t *testing.T) {
	api, s := newTranslationStore(t)
	api.JSON("POST /translations/bulk", http.StatusOK, map[string]any{"success": true})

	saved, err := s.SaveField(context.Background(), "post", 7, "title", FieldTranslations{
		"FR": " Bonjour ",
		"de": "Hallo",
		"it": "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "fr"}, saved)

	calls := api.Calls("POST /translations/bulk")
	require.Len(t, calls, 2)
	var body BulkTranslation
	require.NoError(t, calls[1].DecodeBody(&body))
	assert.Equal(t, BulkTranslation{Model: "post", ModelID: 7, Language: "fr", Translations: map[string]string{"title": "Bonjour"}}, body)
	assert.Equal(t, "Bonjour", s.Field("post", 7, "title")["fr"])
	assert.False(t, s.Has("post", 7, "title", "it"))
}

func TestTranslationStore_SaveFieldPartialFailure(t *testing.T) {
	api, s := newTranslationStore(t)
	api.Sequence("POST /translations/bulk",
		func(w http.ResponseWriter, _ *http.Request) {
			testutil.WriteJSON(w, http.StatusOK, map[string]any{})
		},
		func(w http.ResponseWriter, _ *http.Request) {
			testutil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "too long"})
		},
	)

	saved, err := s.SaveField(context.Background(), "tag", 3, "name", FieldTranslations{"de": "A", "en": "B", "fr": "C"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, []string{"de"}, saved)
	assert.Equal(t, "Failed to save translations for languages: en, fr", s.Err())
	assert.True(t, s.Has("tag", 3, "name", "de"))
	assert.False(t, s.Has("tag", 3, "name", "en"))
}

func TestTranslationStore_SaveFieldRejectsUnknownLanguage(t *testing.T) {
	api, s := newTranslationStore(t)

	_, err := s.SaveField(context.Background(), "post", 7, "title", FieldTranslations{"de": "Hallo", "xx": "?"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, api.Count("POST /translations/bulk"))

	_, err = s.SaveField(context.Background(), "post", 7, "", FieldTranslations{"de": "Hallo"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTranslationStore_Reset(t *testing.T) {
	_, s := newTranslationStore(t)
	s.Set("post", 1, "title", "de", "Hallo")
	require.True(t, s.Has("post", 1, "title", "de"))
	s.Reset()
	assert.False(t, s.Has("post", 1, "title", "de"))
}
