package models

// Device is the structured client fingerprint stored with a session and
// refreshed on every successful access-token validation. It is serialized to
// the sessions.device JSON column as-is.
type Device struct {
	UA      string        `json:"ua,omitempty"`
	Browser DeviceBrowser `json:"browser"`
	OS      DeviceOS      `json:"os"`
	Device  DeviceInfo    `json:"device"`
}

type DeviceBrowser struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

type DeviceOS struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

type DeviceInfo struct {
	Model string `json:"model,omitempty"`
	Type  string `json:"type,omitempty"`
}
