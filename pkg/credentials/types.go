package credentials

// Credentials represents the stored app credentials in credentials.toml.
type Credentials struct {
	Version int                      `toml:"version"`
	Default string                   `toml:"default,omitempty"`
	Apps    map[string]AppCredential `toml:"apps"`
}

// AppCredential identifies one published agent application.
type AppCredential struct {
	AppID    string `toml:"app_id"`
	AppToken string `toml:"app_token"`
}

// Complete reports whether both halves of the credential are present.
func (c AppCredential) Complete() bool {
	return c.AppID != "" && c.AppToken != ""
}
