package queryopts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMemberIDRequired indicates a universe member without an id.
	ErrMemberIDRequired = errors.New("queryopts: member id must be provided")
	// ErrMemberKeyRequired indicates a universe member without a key.
	ErrMemberKeyRequired = errors.New("queryopts: member key must be provided")
	// ErrDuplicateMemberID indicates two members share an id.
	ErrDuplicateMemberID = errors.New("queryopts: member ids must be unique")
	// ErrDuplicateMemberKey indicates two members share a key.
	ErrDuplicateMemberKey = errors.New("queryopts: member keys must be unique")
	// ErrInvalidMemberID indicates an id containing the list separator.
	ErrInvalidMemberID = errors.New("queryopts: member id must not contain a comma")
)

// Member is one selectable entry of a Universe. ID is the stable wire
// identifier; Key is the mutable name used everywhere else.
type Member struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Label          string         `json:"label,omitempty"`
	DefaultEnabled bool           `json:"default_enabled"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Universe maps stable member ids to their keys. It is immutable after
// construction and safe for concurrent use.
type Universe struct {
	members []Member
	byID    map[string]int
	byKey   map[string]int
}

// NewUniverse validates members and builds both lookup directions. Member
// order is preserved and defines the order of encoded id lists.
func NewUniverse(members ...Member) (*Universe, error) {
	u := &Universe{
		members: make([]Member, 0, len(members)),
		byID:    make(map[string]int, len(members)),
		byKey:   make(map[string]int, len(members)),
	}
	for _, member := range members {
		if member.ID == "" {
			return nil, fmt.Errorf("%w: key %q", ErrMemberIDRequired, member.Key)
		}
		if strings.Contains(member.ID, idSep) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMemberID, member.ID)
		}
		if member.Key == "" {
			return nil, fmt.Errorf("%w: id %q", ErrMemberKeyRequired, member.ID)
		}
		if _, exists := u.byID[member.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMemberID, member.ID)
		}
		if _, exists := u.byKey[member.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMemberKey, member.Key)
		}
		index := len(u.members)
		u.byID[member.ID] = index
		u.byKey[member.Key] = index
		member.Metadata = copyMetadata(member.Metadata)
		u.members = append(u.members, member)
	}
	return u, nil
}

// MustUniverse is like NewUniverse but panics on invalid input. Intended for
// static tables and tests.
func MustUniverse(members ...Member) *Universe {
	u, err := NewUniverse(members...)
	if err != nil {
		panic(err)
	}
	return u
}

// Len returns the number of members.
func (u *Universe) Len() int {
	if u == nil {
		return 0
	}
	return len(u.members)
}

// IDFor returns the stable id for key.
func (u *Universe) IDFor(key string) (string, bool) {
	if u == nil {
		return "", false
	}
	index, ok := u.byKey[key]
	if !ok {
		return "", false
	}
	return u.members[index].ID, true
}

// KeyFor returns the key currently registered for id.
func (u *Universe) KeyFor(id string) (string, bool) {
	if u == nil {
		return "", false
	}
	index, ok := u.byID[id]
	if !ok {
		return "", false
	}
	return u.members[index].Key, true
}

// Member returns the member registered under key.
func (u *Universe) Member(key string) (Member, bool) {
	if u == nil {
		return Member{}, false
	}
	index, ok := u.byKey[key]
	if !ok {
		return Member{}, false
	}
	return cloneMember(u.members[index]), true
}

// Members returns a copy of all members in declaration order.
func (u *Universe) Members() []Member {
	if u == nil {
		return nil
	}
	out := make([]Member, len(u.members))
	for i, member := range u.members {
		out[i] = cloneMember(member)
	}
	return out
}

// IDs returns all member ids in declaration order.
func (u *Universe) IDs() []string {
	if u == nil {
		return nil
	}
	out := make([]string, len(u.members))
	for i, member := range u.members {
		out[i] = member.ID
	}
	return out
}

// Keys returns all member keys in declaration order.
func (u *Universe) Keys() []string {
	if u == nil {
		return nil
	}
	out := make([]string, len(u.members))
	for i, member := range u.members {
		out[i] = member.Key
	}
	return out
}

// DefaultEnabledIDs returns the ids of members enabled by default.
func (u *Universe) DefaultEnabledIDs() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.members))
	for _, member := range u.members {
		if member.DefaultEnabled {
			out = append(out, member.ID)
		}
	}
	return out
}

// Validate keeps only ids known to the universe, in input order, dropping
// duplicates. Unknown ids are discarded silently so stale links degrade
// instead of failing.
func (u *Universe) Validate(ids []string) []string {
	out := make([]string, 0, len(ids))
	if u == nil {
		return out
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := u.byID[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Project turns ids into a full selection: listed members true, every other
// member false. Unknown ids are ignored.
func (u *Universe) Project(ids []string) map[string]bool {
	selection := u.EmptySelection()
	for _, id := range ids {
		if key, ok := u.KeyFor(id); ok {
			selection[key] = true
		}
	}
	return selection
}

// DefaultSelection returns the selection of default-enabled members.
func (u *Universe) DefaultSelection() map[string]bool {
	return u.Project(u.DefaultEnabledIDs())
}

// EmptySelection returns a selection with every member disabled.
func (u *Universe) EmptySelection() map[string]bool {
	selection := make(map[string]bool, u.Len())
	if u == nil {
		return selection
	}
	for _, member := range u.members {
		selection[member.Key] = false
	}
	return selection
}

// EnabledIDs converts the enabled entries of selection into ids ordered as the
// universe declares them. Keys outside the universe are dropped.
func (u *Universe) EnabledIDs(selection map[string]bool) []string {
	out := make([]string, 0, len(selection))
	if u == nil {
		return out
	}
	for _, member := range u.members {
		if selection[member.Key] {
			out = append(out, member.ID)
		}
	}
	return out
}

func cloneMember(member Member) Member {
	member.Metadata = copyMetadata(member.Metadata)
	return member
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
