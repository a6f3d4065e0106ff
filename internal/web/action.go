package web

// Action is one entry of the navigation menu. Each value has exactly one
// page handler on Controller.
type Action int

const (
	ActionDashboard Action = iota
	ActionAddStudent
	ActionViewStudents
	ActionUpdateStudent
	ActionDeleteStudent
	ActionQRCode
	ActionClock
)

// Actions lists the menu in display order.
var Actions = []Action{
	ActionDashboard,
	ActionAddStudent,
	ActionViewStudents,
	ActionUpdateStudent,
	ActionDeleteStudent,
	ActionQRCode,
	ActionClock,
}

// String returns the menu label.
func (a Action) String() string {
	switch a {
	case ActionDashboard:
		return "Dashboard"
	case ActionAddStudent:
		return "Add Student"
	case ActionViewStudents:
		return "View Students"
	case ActionUpdateStudent:
		return "Update Student"
	case ActionDeleteStudent:
		return "Delete Student"
	case ActionQRCode:
		return "QR Code Generator"
	case ActionClock:
		return "Digital Clock"
	default:
		return "Unknown"
	}
}

// Path is the URL the menu entry points at.
func (a Action) Path() string {
	switch a {
	case ActionDashboard:
		return "/"
	case ActionAddStudent:
		return "/students/new"
	case ActionViewStudents:
		return "/students"
	case ActionUpdateStudent:
		return "/students/edit"
	case ActionDeleteStudent:
		return "/students/delete"
	case ActionQRCode:
		return "/qr"
	case ActionClock:
		return "/clock"
	default:
		return "/"
	}
}

// template is the page template file rendered for the action.
func (a Action) template() string {
	switch a {
	case ActionDashboard:
		return "dashboard.html"
	case ActionAddStudent:
		return "add.html"
	case ActionViewStudents:
		return "view.html"
	case ActionUpdateStudent:
		return "update.html"
	case ActionDeleteStudent:
		return "delete.html"
	case ActionQRCode:
		return "qr.html"
	case ActionClock:
		return "clock.html"
	default:
		return ""
	}
}
