package domain

// Session is the client's view of the current identity. It is the only
// mutable shared state in the core; the auth service owns every mutation and
// all other components receive read-only copies.
type Session struct {
	Address       Address `json:"address"` // empty when signed out
	Authenticated bool    `json:"authenticated"`
	Balance       Amount  `json:"balance"`
}
