package listeners

import (
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/session"
)

type SessionNotifType int

const (
	// Session notification types
	StateChanged    SessionNotifType = iota // 0 = session state changed.
	BallotConfirmed                         // 1 = ballot reached finality.
)

// SessionNotification models voting session notifications.
type SessionNotification struct {
	Type     SessionNotifType
	Snapshot session.Snapshot
	Ballot   *election.BallotSubmission
}
