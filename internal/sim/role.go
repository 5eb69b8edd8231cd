package sim

// Role identifies how this process participates in the session.
type Role string

const (
	RoleSingleplayer Role = "singleplayer"
	RoleServer       Role = "server"
	RoleClient       Role = "client"
)

// Authoritative reports whether this process is permitted to mutate movement
// state and apply forces. A process is authoritative exactly when it is not
// itself a connected remote client, which covers both the dedicated-server
// and single-player roles. Connected clients only forward actions and never
// apply them locally.
func (r Role) Authoritative() bool {
	return r != RoleClient
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSingleplayer, RoleServer, RoleClient:
		return true
	}
	return false
}
