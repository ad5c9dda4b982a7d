package user

// Actor is the verified identity invoking an operation.
// Phone is set for customers only and is what customer operations match on.
type Actor struct {
	ID    string
	Role  Role
	Phone string
}

// Driver builds a driver actor.
func Driver(id string) Actor {
	return Actor{ID: id, Role: RoleDriver}
}

// CustomerActor builds a customer actor bound to a phone number.
func CustomerActor(id, phone string) Actor {
	return Actor{ID: id, Role: RoleCustomer, Phone: phone}
}

// Supervisor builds a supervisor actor.
func Supervisor(id string) Actor {
	return Actor{ID: id, Role: RoleSupervisor}
}
