package domain

// ActorRole is the coarse role supplied by the identity provider.
type ActorRole string

const (
	RoleAdmin ActorRole = "admin"
	RoleCrew  ActorRole = "crew"
)

// Actor identifies the caller of a workflow operation. It is resolved once per
// request and passed explicitly into every engine call.
type Actor struct {
	ID   string
	Role ActorRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsCrew reports whether the actor holds the crew role.
func (a Actor) IsCrew() bool { return a.Role == RoleCrew }

// CrewMember is an entry of the crew roster.
type CrewMember struct {
	Name      string `yaml:"name"`
	Phone     string `yaml:"phone"`
	NotifyURL string `yaml:"notify_url"`
}
