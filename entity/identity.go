package entity

type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// StaffRoles may manage activities and check attendees in.
var StaffRoles = []Role{RoleOrganizer, RoleAdmin}

type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

func (i Identity) IsStaff() bool {
	for _, r := range StaffRoles {
		if i.Role == r {
			return true
		}
	}
	return false
}
