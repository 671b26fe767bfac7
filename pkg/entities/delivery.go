package entities

type DeliveryStatus string

const (
	DeliveryOK       DeliveryStatus = "ok"
	DeliveryNotFound DeliveryStatus = "not_found"
	DeliveryRevoked  DeliveryStatus = "revoked"
	DeliveryExpired  DeliveryStatus = "expired"
	DeliveryMustJoin DeliveryStatus = "must_join"
	DeliveryNoFiles  DeliveryStatus = "no_files"
)

// DeliveryReport is the outcome of resolving a token for a requester.
type DeliveryReport struct {
	Status    DeliveryStatus
	Delivered int
	Failed    int

	// RequiredChannels carries the membership gate's channel list when
	// Status is DeliveryMustJoin.
	RequiredChannels []string

	// Unverifiable is set when the gate failed because membership could
	// not be checked, as opposed to a confirmed non-member.
	Unverifiable bool
}

type Membership string

const (
	MembershipMember    Membership = "member"
	MembershipNonMember Membership = "non_member"
	MembershipUnknown   Membership = "unknown"
)

// Channel is a named channel alias shown as a button on the greeting.
type Channel struct {
	Alias string `db:"alias"`
	Link  string `db:"link"`
}
