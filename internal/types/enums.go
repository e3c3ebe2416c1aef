package types

import "fmt"

// MembershipLevel is the ordinal permission rank of a user inside an
// organization. Gaps between the values leave room for future ranks.
type MembershipLevel int

const (
	LevelMember MembershipLevel = 1
	LevelAdmin  MembershipLevel = 8
	LevelOwner  MembershipLevel = 15
)

func (l MembershipLevel) String() string {
	switch l {
	case LevelMember:
		return "member"
	case LevelAdmin:
		return "administrator"
	case LevelOwner:
		return "owner"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// IsValid reports whether l is one of the known ranks.
func (l MembershipLevel) IsValid() bool {
	return l == LevelMember || l == LevelAdmin || l == LevelOwner
}

// ParseMembershipLevel maps a role name to its level.
func ParseMembershipLevel(s string) (MembershipLevel, error) {
	switch s {
	case "member":
		return LevelMember, nil
	case "admin", "administrator":
		return LevelAdmin, nil
	case "owner":
		return LevelOwner, nil
	default:
		return 0, fmt.Errorf("unknown membership level %q", s)
	}
}

// InviteDaysValidity is the number of days an organization invite
// stays redeemable after creation.
const InviteDaysValidity = 3

// BillingRealm identifies which resolution path produced a plan.
const (
	RealmCloud = "cloud"
	RealmEE    = "ee"
)

// Plan keys known to the instance-license table.
const (
	PlanFree       = "free"
	PlanStandard   = "standard"
	PlanEnterprise = "enterprise"
)
