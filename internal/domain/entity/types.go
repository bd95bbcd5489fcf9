// Package entity holds the backend records managed by the console's CRUD modules.
package entity

import (
	"time"
)

// Entity is any record addressed by a numeric id.
type Entity interface {
	EntityID() int64
}

// Timestamps are the audit columns every record carries.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
	PostScheduled PostStatus = "scheduled"
)

// Post is a content entry.
type Post struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Content       string         `json:"content"`
	Excerpt       string         `json:"excerpt"`
	ViewCount     int            `json:"view_count"`
	LikeCount     int            `json:"like_count"`
	CommentCount  int            `json:"comment_count"`
	Rating        float64        `json:"rating"`
	Published     bool           `json:"published"`
	Featured      bool           `json:"featured"`
	IsPinned      bool           `json:"is_pinned"`
	Status        PostStatus     `json:"status"`
	Category      string         `json:"category"`
	AuthorID      int64          `json:"author_id"`
	PublishedAt   *time.Time     `json:"published_at"`
	ScheduledAt   *time.Time     `json:"scheduled_at"`
	Tags          []string       `json:"tags"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	FeaturedImage *string        `json:"featured_image"`
	Timestamps
}

func (p Post) EntityID() int64 { return p.ID }

// Product is a catalog item.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
	Timestamps
}

func (p Product) EntityID() int64 { return p.ID }

// Tag labels content.
type Tag struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Timestamps
}

func (t Tag) EntityID() int64 { return t.ID }

// Employee is an internal team member with console access.
type Employee struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	RoleID    int64  `json:"role_id"`
	AvatarURL string `json:"avatar_url,omitempty"`
	LastLogin string `json:"last_login,omitempty"`
	Timestamps
}

func (e Employee) EntityID() int64 { return e.ID }

// DisplayName joins first and last name, falling back to the username.
func (e Employee) DisplayName() string {
	switch {
	case e.FirstName != "" && e.LastName != "":
		return e.FirstName + " " + e.LastName
	case e.FirstName != "":
		return e.FirstName
	case e.LastName != "":
		return e.LastName
	}
	return e.Username
}

// Setting is one typed configuration value.
type Setting struct {
	ID          int64   `json:"id"`
	Key         string  `json:"setting_key"`
	Label       string  `json:"label"`
	Group       string  `json:"group"`
	Type        string  `json:"type"`
	ValueString string  `json:"value_string"`
	ValueInt    int64   `json:"value_int"`
	ValueFloat  float64 `json:"value_float"`
	ValueBool   bool    `json:"value_bool"`
	Description string  `json:"description"`
	IsPublic    bool    `json:"is_public"`
	Timestamps
}

func (s Setting) EntityID() int64 { return s.ID }

// SettingKind is the value column a setting type stores into.
type SettingKind int

const (
	SettingString SettingKind = iota
	SettingInt
	SettingFloat
	SettingBool
)

// Kind maps Type onto its value column; unknown types are strings.
func (s Setting) Kind() SettingKind {
	switch s.Type {
	case "int", "integer", "number":
		return SettingInt
	case "float", "decimal":
		return SettingFloat
	case "bool", "boolean":
		return SettingBool
	}
	return SettingString
}

// Value returns the field selected by Type.
func (s Setting) Value() any {
	switch s.Kind() {
	case SettingInt:
		return s.ValueInt
	case SettingFloat:
		return s.ValueFloat
	case SettingBool:
		return s.ValueBool
	}
	return s.ValueString
}

// SettingValue is a requested new value for the setting named Key. Only
// the field matching the setting's type is used.
type SettingValue struct {
	Key         string  `json:"setting_key"`
	ValueString string  `json:"value_string"`
	ValueInt    int64   `json:"value_int"`
	ValueFloat  float64 `json:"value_float"`
	ValueBool   bool    `json:"value_bool"`
}

// SettingUpdate is the PUT body for one setting. Exactly one value field is set.
type SettingUpdate struct {
	Key         string   `json:"setting_key"`
	Label       string   `json:"label"`
	Group       string   `json:"group"`
	Type        string   `json:"type"`
	ValueString *string  `json:"value_string,omitempty"`
	ValueInt    *int64   `json:"value_int,omitempty"`
	ValueFloat  *float64 `json:"value_float,omitempty"`
	ValueBool   *bool    `json:"value_bool,omitempty"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
}

// UpdateWith builds the update that writes v into s, keeping the
// descriptive columns unchanged.
func (s Setting) UpdateWith(v SettingValue) SettingUpdate {
	u := SettingUpdate{
		Key:         s.Key,
		Label:       s.Label,
		Group:       s.Group,
		Type:        s.Type,
		Description: s.Description,
		IsPublic:    s.IsPublic,
	}
	switch s.Kind() {
	case SettingInt:
		u.ValueInt = &v.ValueInt
	case SettingFloat:
		u.ValueFloat = &v.ValueFloat
	case SettingBool:
		u.ValueBool = &v.ValueBool
	default:
		u.ValueString = &v.ValueString
	}
	return u
}

// PasswordChange is the body of an employee password change.
type PasswordChange struct {
	NewPassword     string `json:"NewPassword"`
	CurrentPassword string `json:"CurrentPassword"`
}
