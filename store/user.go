package store

// User is the fixed-shape caller record. Only ID is required; the remaining
// fields mirror what the identity provider supplies.
type User struct {
	ID        int32
	Email     string
	Name      string
	AvatarURL string
	CreatedTs int64
}

type FindUser struct {
	ID    *int32
	Email *string
}
