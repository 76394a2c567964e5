// Package router holds per-guild router profiles and their Postgres store.
// A profile pairs a device address with the credentials and the last health
// verdict the fleet monitor recorded for it.
package router

import "time"

// Status is the last known health classification of a router.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusOnline     Status = "online"
	StatusOffline    Status = "offline"
	StatusAuthFailed Status = "auth_failed"
	StatusInvalid    Status = "invalid"
	StatusError      Status = "error"
)

// Profile is one registered router scoped to a guild.
type Profile struct {
	GuildID       int64      `json:"guild_id"`
	IP            string     `json:"ip"`
	Name          string     `json:"name"`
	Hostname      string     `json:"hostname"`
	Username      string     `json:"username"`
	Password      string     `json:"password"`
	Status        Status     `json:"status"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasCredentials reports whether the profile can authenticate at all.
// Profiles without both parts are classified invalid without a probe.
func (p *Profile) HasCredentials() bool {
	return p.Username != "" && p.Password != ""
}

// Label returns the display name, falling back to the address.
func (p *Profile) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.IP
}
