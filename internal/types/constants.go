package types

const ContextUserKey = "user"

// Roles
const (
	RoleGraduating = "graduating"
	RoleGraduated  = "graduated"
	RoleAdmin      = "admin"
)

// Survey audience covering every student role.
const TargetAll = "all"

// Verification states
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Employment states
const (
	EmploymentEmployed       = "employed"
	EmploymentSelfEmployed   = "self-employed"
	EmploymentUnemployed     = "unemployed"
	EmploymentFurtherStudies = "further-studies"
	EmploymentNotTracked     = "not-tracked"
)

// Notification types
const (
	NotificationInfo         = "info"
	NotificationVerification = "verification"
	NotificationSurvey       = "survey"
	NotificationAccount      = "account"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = defaultOrigins
)

// SetAllowedOrigins replaces the origins accepted by CORS and the websocket upgrader.
func SetAllowedOrigins(origins []string) {
	if len(origins) == 0 {
		AllowedOrigins = defaultOrigins
		return
	}
	AllowedOrigins = origins
}

// IsStudentRole reports whether role may own a profile.
func IsStudentRole(role string) bool {
	return role == RoleGraduating || role == RoleGraduated
}

// EmploymentStatuses lists every employment state in dashboard order.
var EmploymentStatuses = []string{
	EmploymentEmployed,
	EmploymentSelfEmployed,
	EmploymentUnemployed,
	EmploymentFurtherStudies,
	EmploymentNotTracked,
}

// TargetRoles expands a survey audience into the roles it covers.
func TargetRoles(target string) []string {
	if target == TargetAll {
		return []string{RoleGraduating, RoleGraduated}
	}
	return []string{target}
}
