package domain

// ActorKind discriminates the three credential origins.
type ActorKind string

const (
	ActorLocal    ActorKind = "local"
	ActorExternal ActorKind = "external"
	ActorAdmin    ActorKind = "admin"
)

// Actor is a resolved authenticated identity. Exactly one of the three
// kinds; which fields are meaningful depends on Kind:
//   - local:    ID, Name, Email
//   - external: UID, Email, Name
//   - admin:    Email
type Actor struct {
	Kind  ActorKind `json:"kind"`
	ID    string    `json:"id,omitempty"`
	UID   string    `json:"uid,omitempty"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool { return a.Kind == ActorAdmin }

// Owns reports whether the actor owns a record with the given ownership
// fields. This is the single exhaustive matching rule:
//   - admin matches everything
//   - local matches on the internal user id
//   - external matches on provider uid OR provider email (older records may
//     have only one of the two populated)
//   - a record with no structured owner fields at all falls back to an
//     exact display-name match (legacy records predate owner ids)
func (a Actor) Owns(o Ownership) bool {
	if a.Kind == ActorAdmin {
		return true
	}
	if o.OwnerID == "" && o.OwnerUID == "" && o.OwnerEmail == "" {
		return o.OwnerName != "" && o.OwnerName == a.Name
	}
	switch a.Kind {
	case ActorLocal:
		return a.ID != "" && o.OwnerID == a.ID
	case ActorExternal:
		if a.UID != "" && o.OwnerUID == a.UID {
			return true
		}
		return a.Email != "" && o.OwnerEmail == a.Email
	}
	return false
}

// Stamp produces the ownership fields to persist on a record created by
// this actor. Admin-created records are stamped with the admin email so
// they remain attributable.
func (a Actor) Stamp() Ownership {
	switch a.Kind {
	case ActorLocal:
		return Ownership{OwnerID: a.ID, OwnerName: a.Name}
	case ActorExternal:
		return Ownership{OwnerUID: a.UID, OwnerEmail: a.Email, OwnerName: a.Name}
	case ActorAdmin:
		return Ownership{OwnerEmail: a.Email, OwnerName: a.Name}
	}
	return Ownership{}
}

// DisplayName returns the name to show on results and leaderboards.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
