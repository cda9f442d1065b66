package wire

// OwnerType distinguishes a publisher registration from a subscriber one.
type OwnerType string

const (
	Publisher  OwnerType = "PUBLISHER"
	Subscriber OwnerType = "SUBSCRIBER"
)

// Registration is one directory entry: an actor advertising that it
// publishes or subscribes to a given topic. Identity (for set membership
// and de-dup) uses every field — see spec.md §3.
type Registration struct {
	Name        string    `msgpack:"name" json:"name"`
	Host        string    `msgpack:"host" json:"host"`
	Port        int       `msgpack:"port" json:"port"`
	Domain      string    `msgpack:"domain" json:"domain"`
	Subject     string    `msgpack:"subject,omitempty" json:"subject,omitempty"`
	Type        string    `msgpack:"type,omitempty" json:"type,omitempty"`
	OwnerType   OwnerType `msgpack:"ownertype" json:"ownertype"`
	Description string    `msgpack:"description,omitempty" json:"description,omitempty"`
}

// Equal reports whether r and other have identical identity fields.
func (r Registration) Equal(other Registration) bool {
	return r == other
}

// Less orders registrations lexicographically by
// (name, host, port, domain, subject, type, ownertype), the ordering
// spec.md §3 requires for discovery replies.
func (r Registration) Less(other Registration) bool {
	if r.Name != other.Name {
		return r.Name < other.Name
	}
	if r.Host != other.Host {
		return r.Host < other.Host
	}
	if r.Port != other.Port {
		return r.Port < other.Port
	}
	if r.Domain != other.Domain {
		return r.Domain < other.Domain
	}
	if r.Subject != other.Subject {
		return r.Subject < other.Subject
	}
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.OwnerType < other.OwnerType
}

// Topic reconstructs the colon-separated topic string this registration covers,
// using the same wildcard-degeneration rules as Topic.build.
func (r Registration) Topic() string {
	switch {
	case r.Type != "" && r.Type != "*":
		return r.Domain + ":" + r.Subject + ":" + r.Type
	case r.Subject != "" && r.Subject != "*":
		return r.Domain + ":" + r.Subject
	default:
		return r.Domain
	}
}
