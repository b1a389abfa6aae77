package dto

import "time"

type SettingsResponse struct {
	ApplicationsOpen    bool       `json:"applications_open"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
}

// UpdateSettingsRequest leaves nil fields untouched. An empty deadline clears it.
type UpdateSettingsRequest struct {
	ApplicationsOpen    *bool   `json:"applications_open"`
	ApplicationDeadline *string `json:"application_deadline"`
}
