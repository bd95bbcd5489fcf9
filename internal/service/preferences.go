package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/ports"
)

// Language is a supported content language.
type Language string

const (
	LanguageDE Language = "de"
	LanguageEN Language = "en"
	LanguageFR Language = "fr"
	LanguageIT Language = "it"
)

// Languages lists supported languages in toggle order.
var Languages = []Language{LanguageDE, LanguageEN, LanguageFR, LanguageIT}

var languageNames = map[Language]string{
	LanguageDE: "Deutsch",
	LanguageEN: "English",
	LanguageFR: "Français",
	LanguageIT: "Italiano",
}

// Name is the language's own name.
func (l Language) Name() string {
	return languageNames[l]
}

// Valid reports whether l is supported.
func (l Language) Valid() bool {
	_, ok := languageNames[l]
	return ok
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	v := Language(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("unsupported language %q (valid: de, en, fr, it)", string(text))
	}
	*l = v
	return nil
}

// TranslationPreferences is the persisted preferences blob.
type TranslationPreferences struct {
	CurrentLanguage           Language `json:"currentLanguage"`
	DefaultLanguage           Language `json:"defaultLanguage"`
	ShowTranslationIndicators bool     `json:"showTranslationIndicators"`
	ShowOriginalValues        bool     `json:"showOriginalValues"`
	AutoSaveTranslations      bool     `json:"autoSaveTranslations"`
}

// DefaultTranslationPreferences is the state before anything is saved.
func DefaultTranslationPreferences() TranslationPreferences {
	return TranslationPreferences{
		CurrentLanguage:           LanguageDE,
		DefaultLanguage:           LanguageDE,
		ShowTranslationIndicators: true,
		AutoSaveTranslations:      true,
	}
}

// storedPreferences tolerates partial blobs.
type storedPreferences struct {
	CurrentLanguage           string `json:"currentLanguage"`
	DefaultLanguage           string `json:"defaultLanguage"`
	ShowTranslationIndicators *bool  `json:"showTranslationIndicators"`
	ShowOriginalValues        *bool  `json:"showOriginalValues"`
	AutoSaveTranslations      *bool  `json:"autoSaveTranslations"`
}

func (s storedPreferences) apply(p TranslationPreferences) TranslationPreferences {
	if l := Language(s.CurrentLanguage); l.Valid() {
		p.CurrentLanguage = l
	}
	p.DefaultLanguage = LanguageDE
	if l := Language(s.DefaultLanguage); l.Valid() {
		p.DefaultLanguage = l
	}
	if s.ShowTranslationIndicators != nil {
		p.ShowTranslationIndicators = *s.ShowTranslationIndicators
	}
	if s.ShowOriginalValues != nil {
		p.ShowOriginalValues = *s.ShowOriginalValues
	}
	if s.AutoSaveTranslations != nil {
		p.AutoSaveTranslations = *s.AutoSaveTranslations
	}
	return p
}

// PreferencesOptions groups dependencies for Preferences.
type PreferencesOptions struct {
	Blobs  ports.BlobStore // Required: persisted state
	Logger *slog.Logger    // Optional: structured logger
}

// Preferences holds the translation UI preferences, saved on every change.
type Preferences struct {
	blobs  ports.BlobStore
	logger *slog.Logger

	mu    sync.RWMutex
	prefs TranslationPreferences
}

// NewPreferences constructs a new Preferences with defaults; call Load to restore.
func NewPreferences(opts PreferencesOptions) *Preferences {
	if opts.Blobs == nil {
		panic("Preferences requires a BlobStore")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{
		blobs:  opts.Blobs,
		logger: logger.With("component", "preferences"),
		prefs:  DefaultTranslationPreferences(),
	}
}

// Load restores persisted preferences. Missing or unreadable blobs keep the defaults.
func (p *Preferences) Load(ctx context.Context) TranslationPreferences {
	data, err := p.blobs.Get(ctx, ports.KeyPreferences)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			p.logger.WarnContext(ctx, "load translation preferences failed", "error", err)
		}
		return p.Get()
	}
	var stored storedPreferences
	if err := json.Unmarshal(data, &stored); err != nil {
		p.logger.WarnContext(ctx, "decode translation preferences failed", "error", err)
		return p.Get()
	}
	p.mu.Lock()
	p.prefs = stored.apply(p.prefs)
	out := p.prefs
	p.mu.Unlock()
	return out
}

// Get returns the current preferences.
func (p *Preferences) Get() TranslationPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

func (p *Preferences) update(ctx context.Context, fn func(*TranslationPreferences)) error {
	p.mu.Lock()
	fn(&p.prefs)
	snapshot := p.prefs
	p.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode translation preferences: %w", err)
	}
	if err := p.blobs.Set(ctx, ports.KeyPreferences, data); err != nil {
		p.logger.WarnContext(ctx, "save translation preferences failed", "error", err)
		return fmt.Errorf("save translation preferences: %w", err)
	}
	return nil
}

func invalidLanguage(l Language) error {
	return apperrors.ValidationField("language", fmt.Sprintf("Unsupported language %q", string(l)))
}

// SetCurrentLanguage switches the editing language.
func (p *Preferences) SetCurrentLanguage(ctx context.Context, l Language) error {
	if !l.Valid() {
		return invalidLanguage(l)
	}
	return p.update(ctx, func(t *TranslationPreferences) { t.CurrentLanguage = l })
}

// SetDefaultLanguage changes the fallback language.
func (p *Preferences) SetDefaultLanguage(ctx context.Context, l Language) error {
	if !l.Valid() {
		return invalidLanguage(l)
	}
	return p.update(ctx, func(t *TranslationPreferences) { t.DefaultLanguage = l })
}

// ToggleLanguage advances to the next supported language and returns it.
func (p *Preferences) ToggleLanguage(ctx context.Context) (Language, error) {
	var next Language
	err := p.update(ctx, func(t *TranslationPreferences) {
		i := slices.Index(Languages, t.CurrentLanguage)
		next = Languages[(i+1)%len(Languages)]
		t.CurrentLanguage = next
	})
	return next, err
}

// SetShowTranslationIndicators toggles the indicator badges.
func (p *Preferences) SetShowTranslationIndicators(ctx context.Context, v bool) error {
	return p.update(ctx, func(t *TranslationPreferences) { t.ShowTranslationIndicators = v })
}

// SetShowOriginalValues toggles showing untranslated values.
func (p *Preferences) SetShowOriginalValues(ctx context.Context, v bool) error {
	return p.update(ctx, func(t *TranslationPreferences) { t.ShowOriginalValues = v })
}

// SetAutoSaveTranslations toggles saving translations on edit.
func (p *Preferences) SetAutoSaveTranslations(ctx context.Context, v bool) error {
	return p.update(ctx, func(t *TranslationPreferences) { t.AutoSaveTranslations = v })
}

// ViewerRole labels users whose role is unknown.
const ViewerRole = "Viewer"

// PrincipalSource yields the signed-in principal.
type PrincipalSource interface {
	Principal() (domainauth.Principal, bool)
}

// RoleLookup resolves role ids to roles.
type RoleLookup interface {
	RoleByID(id int64) (domainauth.Role, bool)
}

// DashboardOptions groups dependencies for Dashboard.
type DashboardOptions struct {
	Blobs   ports.BlobStore // Required: persisted selection
	Session PrincipalSource // Required: current principal
	Roles   RoleLookup      // Required: role names
}

// Dashboard tracks which role dashboard is shown. Only administrators may
// pick one; everyone else sees the dashboard of their own role.
type Dashboard struct {
	blobs   ports.BlobStore
	session PrincipalSource
	roles   RoleLookup

	mu       sync.RWMutex
	selected string
}

// NewDashboard constructs a new Dashboard.
func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.Blobs == nil || opts.Session == nil || opts.Roles == nil {
		panic("Dashboard requires Blobs, Session and Roles")
	}
	return &Dashboard{blobs: opts.Blobs, session: opts.Session, roles: opts.Roles}
}

// RoleName is the current user's role label, Viewer when unknown.
func (d *Dashboard) RoleName() string {
	p, ok := d.session.Principal()
	if !ok || p.RoleID == nil {
		return ViewerRole
	}
	if r, ok := d.roles.RoleByID(*p.RoleID); ok && r.Name != "" {
		return r.Name
	}
	return ViewerRole
}

// IsAdminRole reports whether the user may switch dashboards.
func (d *Dashboard) IsAdminRole() bool {
	switch d.RoleName() {
	case "Super Admin", "Administrator":
		return true
	}
	return false
}

// Initialize picks the dashboard to show: the saved one for admins,
// otherwise the user's role.
func (d *Dashboard) Initialize(ctx context.Context) string {
	sel := d.RoleName()
	if d.IsAdminRole() {
		if data, err := d.blobs.Get(ctx, ports.KeyDashboardSel); err == nil && len(data) > 0 {
			sel = string(data)
		}
	}
	d.mu.Lock()
	d.selected = sel
	d.mu.Unlock()
	return sel
}

// Select switches an admin's dashboard and persists the choice.
func (d *Dashboard) Select(ctx context.Context, dashboard string) error {
	dashboard = strings.TrimSpace(dashboard)
	if dashboard == "" {
		return apperrors.ValidationField("dashboard", "Dashboard is required")
	}
	if !d.IsAdminRole() {
		return apperrors.Forbidden("Only administrators can switch dashboards")
	}
	d.mu.Lock()
	d.selected = dashboard
	d.mu.Unlock()
	if err := d.blobs.Set(ctx, ports.KeyDashboardSel, []byte(dashboard)); err != nil {
		return fmt.Errorf("save dashboard selection: %w", err)
	}
	return nil
}

// Selected is the dashboard picked by Initialize or Select.
func (d *Dashboard) Selected() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// Title is "<role> Dashboard" for the selected dashboard.
func (d *Dashboard) Title() string {
	sel := d.Selected()
	if sel == "" {
		sel = d.RoleName()
	}
	return sel + " Dashboard"
}
