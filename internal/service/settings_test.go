package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	"github.com/target/mmk-admin-console/internal/testutil"
)

func newSettingStore(t *testing.T) (*testutil.FakeAPI, *SettingStore) {
	t.Helper()
	api, c := newTestAPI(t)
	api.JSON("GET /settings", http.StatusOK, map[string]any{"data": []entity.Setting{
		{ID: 1, Key: "company_name", Group: "company", Type: "string", ValueString: "Acme", Label: "Company"},
		{ID: 2, Key: "vat_rate", Group: "financial", Type: "float", ValueFloat: 0.2},
		{ID: 3, Key: "maintenance_mode", Group: "system", Type: "bool"},
		{ID: 4, Key: "grace_period_days", Group: "system", Type: "int", ValueInt: 5},
	}})
	return api, NewCatalog(CatalogOptions{API: c}).Settings
}

// echoSettings answers PUT /settings/{id} for every id with the sent body.
func echoSettings(api *testutil.FakeAPI, ids ...int64) {
	for _, id := range ids {
		api.Handle(fmt.Sprintf("PUT /settings/%d", id), echoSetting(id))
	}
}

func echoSetting(id int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u entity.SettingUpdate
		_ = json.NewDecoder(r.Body).Decode(&u)
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"data": settingFromUpdate(id, u)})
	}
}

func settingFromUpdate(id int64, u entity.SettingUpdate) entity.Setting {
	s := entity.Setting{ID: id, Key: u.Key, Group: u.Group, Type: u.Type, Label: u.Label}
	if u.ValueString != nil {
		s.ValueString = *u.ValueString
	}
	if u.ValueInt != nil {
		s.ValueInt = *u.ValueInt
	}
	if u.ValueFloat != nil {
		s.ValueFloat = *u.ValueFloat
	}
	if u.ValueBool != nil {
		s.ValueBool = *u.ValueBool
	}
	return s
}

func settingCalls(api *testutil.FakeAPI) []testutil.Call {
	var out []testutil.Call
	for _, c := range api.Calls("") {
		if c.Method == http.MethodPut && strings.HasPrefix(c.Path, "/settings/") {
			out = append(out, c)
		}
	}
	return out
}

func TestSettingStore_Lookups(t *testing.T) {
	_, s := newSettingStore(t)
	assert.Equal(t, DefaultCompanyName, s.CompanyName())
	assert.Equal(t, DefaultVATRate, s.VATRate())
	assert.Equal(t, DefaultInvoicePrefix, s.InvoicePrefix())

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Acme", s.CompanyName())
	assert.InDelta(t, 0.2, s.VATRate(), 1e-9)
	assert.False(t, s.MaintenanceMode())
	assert.Equal(t, DefaultInvoicePrefix, s.InvoicePrefix())
	assert.Len(t, s.ByGroup("system"), 2)
	_, ok := s.ByKey("missing")
	assert.False(t, ok)
}

func TestSettingStore_FetchAllQuery(t *testing.T) {
	api, s := newSettingStore(t)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, api.Calls("GET /settings")[0].Query, "limit=1000")
}

func TestSettingStore_UpdateGroup(t *testing.T) {
	api, s := newSettingStore(t)
	echoSettings(api, 1, 2, 3, 4)
	ctx := context.Background()
	_, err := s.FetchAll(ctx)
	require.NoError(t, err)

	updated, err := s.UpdateGroup(ctx, "system", []entity.SettingValue{
		{Key: "maintenance_mode", ValueBool: true},
		{Key: "grace_period_days", ValueInt: 9},
		{Key: "company_name", ValueString: "Other group"},
		{Key: "unknown", ValueString: "skipped"},
	})
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	assert.Len(t, settingCalls(api), 2)
	assert.True(t, s.MaintenanceMode())
	grace, _ := s.ByKey("grace_period_days")
	assert.Equal(t, int64(9), grace.ValueInt)
	assert.Equal(t, "Acme", s.CompanyName())

	for _, call := range settingCalls(api) {
		assert.Equal(t, 1, strings.Count(string(call.Body), `"value_`), "only the typed value column is sent")
	}
}

func TestSettingStore_UpdateByKey(t *testing.T) {
	api, s := newSettingStore(t)
	echoSettings(api, 1, 2, 3, 4)
	ctx := context.Background()
	_, err := s.FetchAll(ctx)
	require.NoError(t, err)

	_, err = s.UpdateByKey(ctx, []entity.SettingValue{
		{Key: "company_name", ValueString: "Globex"},
		{Key: "vat_rate", ValueFloat: 0.25},
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", s.CompanyName())
	assert.InDelta(t, 0.25, s.VATRate(), 1e-9)

	updated, err := s.UpdateByKey(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, updated)
}

func TestSettingStore_UpdateManyFailureMergesNothing(t *testing.T) {
	api, s := newSettingStore(t)
	echoSettings(api, 1)
	api.JSON("PUT /settings/2", http.StatusBadRequest, map[string]string{"message": "VAT must be below 1"})
	ctx := context.Background()
	_, err := s.FetchAll(ctx)
	require.NoError(t, err)

	_, err = s.UpdateByKey(ctx, []entity.SettingValue{
		{Key: "company_name", ValueString: "Globex"},
		{Key: "vat_rate", ValueFloat: 3},
	})
	require.Error(t, err)
	assert.Equal(t, "Acme", s.CompanyName())
	assert.NotEmpty(t, s.Err())
}
