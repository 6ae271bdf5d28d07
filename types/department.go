package types

// HeadAuthorityDepartment is the coordinating department. It is listed
// for routing but excluded from per-department analytics.
const HeadAuthorityDepartment = "Head Authority"

// Departments is the fixed set of departments issues are routed to.
var Departments = []string{
	HeadAuthorityDepartment,
	"Road Maintenance",
	"Drainage",
	"Garbage Management",
	"Streetlight Department",
}

// IssueTypes are the types a citizen may pick in manual mode.
var IssueTypes = []string{
	"Pothole",
	"Garbage",
	"Damage Streetlight",
	"Water Log",
	"Other",
}

// AnalyticsDepartments returns Departments without the head authority.
func AnalyticsDepartments() []string {
	out := make([]string, 0, len(Departments))
	for _, d := range Departments {
		if d != HeadAuthorityDepartment {
			out = append(out, d)
		}
	}
	return out
}

// IsDepartment reports whether name is one of Departments.
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}
