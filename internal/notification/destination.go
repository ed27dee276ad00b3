package notification

import (
	"errors"
	"strings"

	"github.com/spec-kit/worklist-service/internal/domain"
)

// ErrNoDestination means the crew member cannot be reached.
var ErrNoDestination = errors.New("no notification destination configured")

const phonePlaceholder = "{phone}"

// Resolver maps crew names to shoutrrr URLs.
type Resolver struct {
	members  map[string]domain.CrewMember
	template string
}

// NewResolver builds a resolver over the roster. template is a shoutrrr URL
// containing {phone}; it may be empty when every member has a notify_url.
func NewResolver(roster []domain.CrewMember, template string) *Resolver {
	members := make(map[string]domain.CrewMember, len(roster))
	for _, m := range roster {
		members[m.Name] = m
	}
	return &Resolver{members: members, template: strings.TrimSpace(template)}
}

// Resolve returns the destination URL for name.
func (r *Resolver) Resolve(name string) (string, error) {
	member, ok := r.members[name]
	if !ok {
		return "", ErrNoDestination
	}
	if member.NotifyURL != "" {
		return member.NotifyURL, nil
	}
	if member.Phone == "" || r.template == "" {
		return "", ErrNoDestination
	}
	phone := strings.TrimPrefix(strings.ReplaceAll(member.Phone, " ", ""), "+")
	return strings.ReplaceAll(r.template, phonePlaceholder, phone), nil
}
