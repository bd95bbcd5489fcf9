package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

const (
	endpointTranslations     = "/translations"
	endpointBulkTranslations = "/translations/bulk"
)

// FieldTranslations maps a language code to the translated value of one field.
type FieldTranslations map[string]string

// RecordTranslations maps a field name to its translations.
type RecordTranslations map[string]FieldTranslations

// BulkTranslation is the body of one bulk save: several fields of one
// record in one language.
type BulkTranslation struct {
	Model        string            `json:"model"`
	ModelID      int64             `json:"modelId"`
	Language     string            `json:"language"`
	Translations map[string]string `json:"translations"`
}

// TranslationStoreOptions groups dependencies for TranslationStore.
type TranslationStoreOptions struct {
	API    Backend      // Required: backend client
	Logger *slog.Logger // Optional: structured logger
}

// TranslationStore caches the content translations of records, keyed by
// model name and record id.
type TranslationStore struct {
	api    Backend
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]map[int64]RecordTranslations
	err     string
}

// NewTranslationStore constructs a new TranslationStore.
func NewTranslationStore(opts TranslationStoreOptions) *TranslationStore {
	if opts.API == nil {
		panic("TranslationStore requires an API backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslationStore{
		api:     opts.API,
		logger:  logger.With("component", "translations"),
		records: make(map[string]map[int64]RecordTranslations),
	}
}

// Fetch loads every translation of one record and replaces the cached copy.
func (s *TranslationStore) Fetch(ctx context.Context, model string, id int64) (RecordTranslations, error) {
	s.setErr("")
	if model == "" {
		return nil, s.fail(ctx, apperrors.ValidationField("model", "Model is required"), "")
	}

	var resp RecordTranslations
	endpoint := endpointTranslations + "/" + url.PathEscape(model) + "/" + strconv.FormatInt(id, 10)
	if err := s.api.Get(ctx, endpoint, &resp); err != nil {
		return nil, s.fail(ctx, err, "Failed to fetch translations")
	}
	if resp == nil {
		resp = RecordTranslations{}
	}

	s.mu.Lock()
	if s.records[model] == nil {
		s.records[model] = make(map[int64]RecordTranslations)
	}
	s.records[model][id] = cloneRecord(resp)
	s.mu.Unlock()
	return resp, nil
}

// SaveField saves one field of a record in several languages, one request
// per language; blank values are skipped. Successful languages are cached
// even when others fail. It returns the languages saved.
func (s *TranslationStore) SaveField(ctx context.Context, model string, id int64, field string, values FieldTranslations) ([]string, error) {
	s.setErr("")
	if model == "" || field == "" {
		return nil, s.fail(ctx, apperrors.Validation("Model and field are required"), "")
	}
	byLang := make(map[string]string, len(values))
	for lang, value := range values {
		var l Language
		if err := l.UnmarshalText([]byte(lang)); err != nil {
			return nil, s.fail(ctx, invalidLanguage(Language(lang)), "")
		}
		byLang[string(l)] = value
	}

	var saved, failed []string
	var errs []error
	for _, code := range slices.Sorted(maps.Keys(byLang)) {
		value := strings.TrimSpace(byLang[code])
		if value == "" {
			continue
		}
		body := BulkTranslation{
			Model:        model,
			ModelID:      id,
			Language:     code,
			Translations: map[string]string{field: value},
		}
		if err := s.api.Post(ctx, endpointBulkTranslations, body, nil); err != nil {
			s.logger.WarnContext(ctx, "save translation failed", "model", model, "id", id, "field", field, "language", code, "error", err)
			failed = append(failed, code)
			errs = append(errs, err)
			continue
		}
		s.Set(model, id, field, code, value)
		saved = append(saved, code)
	}

	if len(failed) > 0 {
		msg := "Failed to save translations for languages: " + strings.Join(failed, ", ")
		s.setErr(msg)
		return saved, fmt.Errorf("save translations for %s: %w", strings.Join(failed, ", "), errors.Join(errs...))
	}
	return saved, nil
}

func (s *TranslationStore) fail(ctx context.Context, err error, fallback string) error {
	msg := apperrors.Message(err)
	if msg == "" {
		msg = fallback
	}
	s.setErr(msg)
	s.logger.WarnContext(ctx, "translation operation failed", "error", err)
	return err
}

func (s *TranslationStore) setErr(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// Set caches one translated value.
func (s *TranslationStore) Set(model string, id int64, field, lang, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.records[model]
	if byID == nil {
		byID = make(map[int64]RecordTranslations)
		s.records[model] = byID
	}
	rec := byID[id]
	if rec == nil {
		rec = RecordTranslations{}
		byID[id] = rec
	}
	if rec[field] == nil {
		rec[field] = FieldTranslations{}
	}
	rec[field][lang] = value
}

// Field returns the cached translations of one field.
func (s *TranslationStore) Field(model string, id int64, field string) FieldTranslations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := FieldTranslations{}
	maps.Copy(out, s.records[model][id][field])
	return out
}

// Has reports whether a non-empty translation is cached.
func (s *TranslationStore) Has(model string, id int64, field, lang string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[model][id][field][lang] != ""
}

// Record returns the cached translations of one record.
func (s *TranslationStore) Record(model string, id int64) RecordTranslations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecord(s.records[model][id])
}

// Forget drops the cached translations of one record.
func (s *TranslationStore) Forget(model string, id int64) {
	s.mu.Lock()
	delete(s.records[model], id)
	s.mu.Unlock()
}

// Err returns the message of the last failure, "" after a success.
func (s *TranslationStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Reset drops every cached translation.
func (s *TranslationStore) Reset() {
	s.mu.Lock()
	s.records = make(map[string]map[int64]RecordTranslations)
	s.err = ""
	s.mu.Unlock()
}

func cloneRecord(r RecordTranslations) RecordTranslations {
	out := make(RecordTranslations, len(r))
	for field, langs := range r {
		out[field] = maps.Clone(langs)
	}
	return out
}
