package service

import (
	"context"
	"slices"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	"golang.org/x/sync/errgroup"
)

const settingsFetchLimit = 1000

// Fallbacks for well-known settings that are missing or empty.
const (
	DefaultCompanyName   = "Base"
	DefaultVATRate       = 0.18
	DefaultInvoicePrefix = "INV"
)

// SettingStore adds lookups and batched updates to the settings collection.
type SettingStore struct {
	*EntityStore[entity.Setting]
}

// SettingPatch pairs a setting id with its new state.
type SettingPatch struct {
	ID     int64
	Update entity.SettingUpdate
}

// FetchAll loads every setting in one page.
func (s *SettingStore) FetchAll(ctx context.Context) ([]entity.Setting, error) {
	return s.List(ctx, entity.ListParams{
		Page:      entity.DefaultPage,
		Limit:     settingsFetchLimit,
		SortBy:    "setting_key",
		SortOrder: entity.SortAsc,
	})
}

// ByGroup returns the loaded settings of group.
func (s *SettingStore) ByGroup(group string) []entity.Setting {
	items := s.Items()
	return slices.DeleteFunc(items, func(v entity.Setting) bool { return v.Group != group })
}

// ByKey finds a loaded setting by key.
func (s *SettingStore) ByKey(key string) (entity.Setting, bool) {
	for _, v := range s.Items() {
		if v.Key == key {
			return v, true
		}
	}
	return entity.Setting{}, false
}

// CompanyName is the company_name setting.
func (s *SettingStore) CompanyName() string {
	if v, ok := s.ByKey("company_name"); ok && v.ValueString != "" {
		return v.ValueString
	}
	return DefaultCompanyName
}

// VATRate is the vat_rate setting.
func (s *SettingStore) VATRate() float64 {
	if v, ok := s.ByKey("vat_rate"); ok && v.ValueFloat != 0 {
		return v.ValueFloat
	}
	return DefaultVATRate
}

// MaintenanceMode is the maintenance_mode setting.
func (s *SettingStore) MaintenanceMode() bool {
	v, ok := s.ByKey("maintenance_mode")
	return ok && v.ValueBool
}

// InvoicePrefix is the invoice_prefix setting.
func (s *SettingStore) InvoicePrefix() string {
	if v, ok := s.ByKey("invoice_prefix"); ok && v.ValueString != "" {
		return v.ValueString
	}
	return DefaultInvoicePrefix
}

// UpdateMany sends every patch concurrently and merges the answers into
// Items. The first failure cancels the rest; nothing is merged then.
func (s *SettingStore) UpdateMany(ctx context.Context, patches []SettingPatch) ([]entity.Setting, error) {
	s.clearErr()
	if len(patches) == 0 {
		return nil, nil
	}

	results := make([]entity.Setting, len(patches))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range patches {
		g.Go(func() error {
			var resp dataEnvelope[entity.Setting]
			if err := s.api.Put(gctx, s.itemPath(p.ID), p.Update, &resp); err != nil {
				return err
			}
			results[i] = resp.Data
			if results[i].ID == 0 {
				results[i].ID = p.ID
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, err, "Failed to update settings")
	}

	s.mu.Lock()
	for _, updated := range results {
		if i := slices.IndexFunc(s.items, func(v entity.Setting) bool { return v.ID == updated.ID }); i >= 0 {
			s.items[i] = updated
		}
	}
	s.mu.Unlock()
	return results, nil
}

// UpdateGroup writes values by key. Keys that are not loaded, or that
// belong to another group when group is set, are skipped.
func (s *SettingStore) UpdateGroup(ctx context.Context, group string, values []entity.SettingValue) ([]entity.Setting, error) {
	var patches []SettingPatch
	for _, v := range values {
		setting, ok := s.ByKey(v.Key)
		if !ok || (group != "" && setting.Group != group) {
			continue
		}
		patches = append(patches, SettingPatch{ID: setting.ID, Update: setting.UpdateWith(v)})
	}
	return s.UpdateMany(ctx, patches)
}

// UpdateByKey writes values by key across all groups.
func (s *SettingStore) UpdateByKey(ctx context.Context, values []entity.SettingValue) ([]entity.Setting, error) {
	return s.UpdateGroup(ctx, "", values)
}
