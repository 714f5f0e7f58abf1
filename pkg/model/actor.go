package model

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleLogistics Role = "logistics"
	// RoleSystem is never issued in tokens; internal callers such as the
	// payment reconciler act with it.
	RoleSystem Role = "system"
)

func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin || r == RoleLogistics
}

// Actor is the verified identity behind a request.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsOperator() bool {
	return a.Role == RoleAdmin || a.Role == RoleLogistics
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

func SystemActor(name string) Actor {
	return Actor{ID: name, Role: RoleSystem}
}
