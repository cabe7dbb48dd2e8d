package models

type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex" json:"name"`
}

// Role IDs used across the application.
const (
	RoleGuest   uint = 0
	RoleUser    uint = 1
	RoleAdmin   uint = 2
	RoleManager uint = 3
)

var roleNames = map[uint]string{
	RoleGuest:   "guest",
	RoleUser:    "user",
	RoleAdmin:   "admin",
	RoleManager: "manager",
}

func RoleName(id uint) string {
	if name, ok := roleNames[id]; ok {
		return name
	}
	return roleNames[RoleGuest]
}
