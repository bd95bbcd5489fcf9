package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// ActivityUser is the actor embedded in an activity entry.
type ActivityUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Activity is one audit-log entry: who did what to which record.
type Activity struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	User        *ActivityUser  `json:"user,omitempty"`
	EntityType  string         `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IPAddress   string         `json:"ip_address"`
	UserAgent   string         `json:"user_agent"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ActivityList decodes either a bare JSON array or a {data: [...]} envelope;
// the activity endpoints answer with both shapes.
type ActivityList []Activity

// UnmarshalJSON implements json.Unmarshaler.
func (l *ActivityList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var items []Activity
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var env struct {
		Data []Activity `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = env.Data
	return nil
}
