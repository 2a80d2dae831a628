package entities

// ActorRole is the role the auth layer attached to the caller
type ActorRole string

const (
	RoleCustomer          ActorRole = "customer"
	RoleAdmin             ActorRole = "admin"
	RoleConceptManager    ActorRole = "conceptManager"
	RoleRestaurantManager ActorRole = "restaurantManager"
	RoleBookingManager    ActorRole = "bookingManager"
	RoleSystem            ActorRole = "system"
)

// Actor identifies who performs a transition; DisplayName goes into the audit trail.
type Actor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        ActorRole `json:"role"`
}

// SystemActor returns the identity used for automatic transitions
func SystemActor(name string) Actor {
	return Actor{ID: name, DisplayName: name, Role: RoleSystem}
}

// IsStaff reports whether the actor manages bookings on behalf of a restaurant
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleAdmin, RoleConceptManager, RoleRestaurantManager, RoleBookingManager:
		return true
	}
	return false
}

// IsSystem reports whether the actor is the automatic sweep identity
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}
