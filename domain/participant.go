// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "strconv"

type UserID int64

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// Principal is the authenticated identity attached to a connection.
// The zero value is the anonymous principal.
type Principal struct {
	ID       UserID
	Username string
}

// Anonymous is returned whenever a credential cannot be resolved.
var Anonymous = Principal{}

func (p Principal) IsAnonymous() bool {
	return p.ID <= 0
}
