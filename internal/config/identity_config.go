package config

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Identity) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Identity) GetGoogleRedirectURL() string {
	return EnvVars{}.GetBaseURL() + "/auth/google/callback"
}

// GoogleConfigured reports whether social login can be offered at all.
func (i Identity) GoogleConfigured() bool {
	return i.GetGoogleClientID() != "" && i.GetGoogleClientSecret() != ""
}
