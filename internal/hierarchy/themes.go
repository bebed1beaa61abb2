package hierarchy

// Theme groups requirements that address one recurring compliance concern.
// Theme names double as assessment category names, so they are deliberately
// generic enough to be reused across assessments.
type Theme struct {
	Name   string
	Groups []Group
}

// Group synthesizes a parent control label from matching keywords
type Group struct {
	Label    string
	Keywords []string
}

// DefaultCategory is used when no theme matches any requirement
const DefaultCategory = "Governance"

// DefaultThemes returns the built-in theme table. Order matters twice over:
// the first matching theme in table order claims a requirement, and within a
// theme the first matching group claims it.
func DefaultThemes() []Theme {
	return []Theme{
		{
			Name: "Access Management",
			Groups: []Group{
				{Label: "MFA Enforcement", Keywords: []string{"mfa", "multi-factor", "multifactor", "two-factor", "2fa"}},
				{Label: "Password Policy", Keywords: []string{"password", "passphrase"}},
				{Label: "Access Control", Keywords: []string{"access", "login", "privilege", "credential", "authenticat", "authoriz"}},
			},
		},
		{
			Name: "Data Protection",
			Groups: []Group{
				{Label: "Encryption", Keywords: []string{"encrypt", "cryptograph", "tls", "key rotation"}},
				{Label: "Data Retention", Keywords: []string{"retention", "retain", "disposal", "dispose", "deletion"}},
				{Label: "Backup & Recovery", Keywords: []string{"backup", "restore", "recovery"}},
			},
		},
		{
			Name: "Logging & Monitoring",
			Groups: []Group{
				{Label: "Audit Logging", Keywords: []string{"audit trail", "audit log", "logged", "logging", "log"}},
				{Label: "Monitoring", Keywords: []string{"monitor", "alert", "anomal", "detect"}},
			},
		},
		{
			Name: "Incident Response",
			Groups: []Group{
				{Label: "Incident Handling", Keywords: []string{"incident", "breach", "compromise"}},
				{Label: "Notification", Keywords: []string{"notify", "notification"}},
			},
		},
		{
			Name: "Change Management",
			Groups: []Group{
				{Label: "Change Approval", Keywords: []string{"change request", "change approval", "deployment", "release"}},
				{Label: "Periodic Review", Keywords: []string{"review", "recertif", "reassess"}},
			},
		},
		{
			Name: "Network Security",
			Groups: []Group{
				{Label: "Network Controls", Keywords: []string{"firewall", "network", "segment", "vpn", "perimeter"}},
			},
		},
		{
			Name: "Vendor Management",
			Groups: []Group{
				{Label: "Third-Party Risk", Keywords: []string{"vendor", "third-party", "third party", "supplier", "contractor"}},
			},
		},
	}
}
