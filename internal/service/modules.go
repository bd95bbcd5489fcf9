package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	"github.com/target/mmk-admin-console/internal/ports"
)

// ModuleRoutes are the console pages of a module. View and Edit carry an
// ":id" segment.
type ModuleRoutes struct {
	List   string `json:"list,omitempty"`
	Create string `json:"create,omitempty"`
	View   string `json:"view,omitempty"`
	Edit   string `json:"edit,omitempty"`
}

// ModulePermissions are "resource:action" keys required per operation.
type ModulePermissions struct {
	View   string `json:"view,omitempty"`
	Create string `json:"create,omitempty"`
	Update string `json:"update,omitempty"`
	Delete string `json:"delete,omitempty"`
	List   string `json:"list,omitempty"`
}

// ModuleNavigation is a sidebar entry.
type ModuleNavigation struct {
	Label      string `json:"label"`
	To         string `json:"to"`
	Permission string `json:"permission,omitempty"`
	Order      int    `json:"order,omitempty"`
}

// Module describes one CRUD section of the console.
type Module struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Routes      ModuleRoutes      `json:"routes"`
	Permissions ModulePermissions `json:"permissions"`
	Navigation  *ModuleNavigation `json:"navigation,omitempty"`
}

func crudModule(name, display, resource string, order int) Module {
	base := "/app/" + name
	list := resource + ":list"
	return Module{
		Name:        name,
		DisplayName: display,
		Description: display + " management module",
		Endpoint:    "/" + name,
		Routes: ModuleRoutes{
			List:   base,
			Create: base + "/create",
			View:   base + "/:id",
			Edit:   base + "/:id/edit",
		},
		Permissions: ModulePermissions{
			View:   resource + ":read",
			Create: resource + ":create",
			Update: resource + ":update",
			Delete: resource + ":delete",
			List:   list,
		},
		Navigation: &ModuleNavigation{Label: display, To: base, Permission: list, Order: order},
	}
}

var registry = []Module{
	crudModule("posts", "Posts", "post", 10),
	crudModule("products", "Products", "product", 100),
	crudModule("tags", "Tags", "tag", 100),
	{
		Name:        "employees",
		DisplayName: "Employees",
		Description: "Internal team members",
		Endpoint:    "/employees",
		Routes: ModuleRoutes{
			List:   "/app/users",
			Create: "/app/users/new",
			View:   "/app/employees/:id",
			Edit:   "/app/employees/:id/edit",
		},
		Permissions: ModulePermissions{
			View:   "employee:read",
			Create: "employee:create",
			Update: "employee:update",
			Delete: "employee:delete",
			List:   "employee:list",
		},
		Navigation: &ModuleNavigation{Label: "Users", To: "/app/users", Permission: "employee:list", Order: 50},
	},
	{
		Name:        "settings",
		DisplayName: "Settings",
		Endpoint:    "/settings",
		Routes:      ModuleRoutes{List: "/app/settings"},
		Permissions: ModulePermissions{View: "settings:read", Update: "settings:update", List: "settings:read"},
		Navigation:  &ModuleNavigation{Label: "Settings", To: "/app/settings", Permission: "settings:read", Order: 900},
	},
}

// Modules returns every registered module.
func Modules() []Module {
	return slices.Clone(registry)
}

// ModuleByName finds a registered module.
func ModuleByName(name string) (Module, bool) {
	i := slices.IndexFunc(registry, func(m Module) bool { return m.Name == name })
	if i < 0 {
		return Module{}, false
	}
	return registry[i], true
}

// SplitPermission splits "resource:action".
func SplitPermission(key string) (resource, action string, ok bool) {
	resource, action, ok = strings.Cut(key, ":")
	return resource, action, ok && resource != "" && action != ""
}

// NavigationItems returns the sidebar entries the allow func grants,
// ordered by Order then label. Entries without Order sort last.
func NavigationItems(allow func(resource, action string) bool) []ModuleNavigation {
	var out []ModuleNavigation
	for _, m := range registry {
		if m.Navigation == nil {
			continue
		}
		nav := *m.Navigation
		if nav.Label == "" {
			nav.Label = m.DisplayName
		}
		if r, a, ok := SplitPermission(nav.Permission); ok && allow != nil && !allow(r, a) {
			continue
		}
		out = append(out, nav)
	}
	order := func(n ModuleNavigation) int {
		if n.Order == 0 {
			return 999
		}
		return n.Order
	}
	slices.SortStableFunc(out, func(a, b ModuleNavigation) int {
		return cmp.Or(cmp.Compare(order(a), order(b)), strings.Compare(a.Label, b.Label))
	})
	return out
}

// PostStore adds publication helpers to the posts collection.
type PostStore struct {
	*EntityStore[entity.Post]
	now func() time.Time
}

// Publish marks a post published now.
func (s *PostStore) Publish(ctx context.Context, id int64) (entity.Post, error) {
	return s.Update(ctx, id, map[string]any{
		"published":    true,
		"status":       entity.PostPublished,
		"published_at": s.now().UTC().Format(time.RFC3339),
	})
}

// Unpublish returns a post to draft.
func (s *PostStore) Unpublish(ctx context.Context, id int64) (entity.Post, error) {
	return s.Update(ctx, id, map[string]any{
		"published":    false,
		"status":       entity.PostDraft,
		"published_at": nil,
	})
}

// ToggleFeatured flips the featured flag of a post on the current page.
// It reports false when the post is not loaded.
func (s *PostStore) ToggleFeatured(ctx context.Context, id int64) (entity.Post, bool, error) {
	p, ok := s.Find(id)
	if !ok {
		return entity.Post{}, false, nil
	}
	updated, err := s.Update(ctx, id, map[string]any{"featured": !p.Featured})
	return updated, true, err
}

// Filter returns the loaded posts matching keep.
func (s *PostStore) Filter(keep func(entity.Post) bool) []entity.Post {
	items := s.Items()
	return slices.DeleteFunc(items, func(p entity.Post) bool { return !keep(p) })
}

// Catalog holds one EntityStore per registered module plus the activity
// feed and content translations shown alongside them.
type Catalog struct {
	Posts        *PostStore
	Products     *EntityStore[entity.Product]
	Tags         *EntityStore[entity.Tag]
	Employees    *EmployeeStore
	Settings     *SettingStore
	Activities   *ActivityFeed
	Translations *TranslationStore
}

// CatalogOptions groups dependencies for Catalog.
type CatalogOptions struct {
	API      Backend          // Required: backend client
	Notifier ports.Notifier   // Optional: failure notices
	Logger   *slog.Logger     // Optional: structured logger
	Now      func() time.Time // Optional: clock override
}

// NewCatalog builds the stores of every registered module.
func NewCatalog(opts CatalogOptions) *Catalog {
	store := func(endpoint, singular, plural string) EntityStoreOptions {
		return EntityStoreOptions{
			API:      opts.API,
			Resource: EntityResource{Endpoint: endpoint, Singular: singular, Plural: plural},
			Notifier: opts.Notifier,
			Logger:   opts.Logger,
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Catalog{
		Posts:     &PostStore{EntityStore: NewEntityStore[entity.Post](store("/posts", "post", "posts")), now: now},
		Products:  NewEntityStore[entity.Product](store("/products", "product", "products")),
		Tags:      NewEntityStore[entity.Tag](store("/tags", "tag", "tags")),
		Employees: &EmployeeStore{EntityStore: NewEntityStore[entity.Employee](store("/employees", "employee", "employees"))},
		Settings:  &SettingStore{EntityStore: NewEntityStore[entity.Setting](store("/settings", "setting", "settings"))},

		Activities:   NewActivityFeed(ActivityFeedOptions{API: opts.API, Logger: opts.Logger}),
		Translations: NewTranslationStore(TranslationStoreOptions{API: opts.API, Logger: opts.Logger}),
	}
}

// Reset clears every store. Called on logout.
func (c *Catalog) Reset() {
	c.Posts.Reset()
	c.Products.Reset()
	c.Tags.Reset()
	c.Employees.Reset()
	c.Settings.Reset()
	c.Activities.Reset()
	c.Translations.Reset()
}
