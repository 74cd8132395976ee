package models

type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// Valid reports whether r is one of the known roles. Roles are fixed at
// registration and never change.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleWorker
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
