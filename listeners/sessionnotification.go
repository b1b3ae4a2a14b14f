package listeners

import (
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/session"
)

// SessionNotificationListener satisfies the session NotificationListener
// interface contract.
type SessionNotificationListener struct {
	SessionNotifChan chan SessionNotification
}

func NewSessionNotificationListener() *SessionNotificationListener {
	return &SessionNotificationListener{
		SessionNotifChan: make(chan SessionNotification, 16),
	}
}

func (sn *SessionNotificationListener) OnSessionStateChanged(snapshot session.Snapshot) {
	sn.sendNotification(SessionNotification{
		Type:     StateChanged,
		Snapshot: snapshot,
	})
}

func (sn *SessionNotificationListener) OnBallotConfirmed(submission election.BallotSubmission) {
	sn.sendNotification(SessionNotification{
		Type:   BallotConfirmed,
		Ballot: &submission,
	})
}

// sendNotification drops the signal if the channel is full so the session
// is never blocked by a slow reader.
func (sn *SessionNotificationListener) sendNotification(signal SessionNotification) {
	select {
	case sn.SessionNotifChan <- signal:
	default:
	}
}
