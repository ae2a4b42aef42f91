package schema

// Settings holds the admin-configured behavior of the form that is not part of
// the step/field structure. Loaded once per operation and passed by parameter;
// callers never mutate it.
type Settings struct {
	AdminEmail      string `json:"admin_email"`
	SubjectPrefix   string `json:"subject_prefix"`
	SuccessMessage  string `json:"success_message"`
	BackgroundEmail bool   `json:"background_email"`
	ShowTracker     bool   `json:"show_tracker"`
	SiteName        string `json:"site_name"`
	SiteURL         string `json:"site_url"`
}

// DefaultSettings mirrors the defaults applied before the admin saves anything.
func DefaultSettings() Settings {
	return Settings{
		SubjectPrefix:   "New Submission",
		SuccessMessage:  "Thank you for your message! We will get back to you soon.",
		BackgroundEmail: true,
		ShowTracker:     true,
		SiteName:        "Stepform",
	}
}
