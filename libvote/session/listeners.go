package session

import (
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

func (c *Controller) AddNotificationListener(notificationListener NotificationListener, uniqueIdentifier string) error {
	c.notificationListenersMu.Lock()
	defer c.notificationListenersMu.Unlock()

	if _, ok := c.notificationListeners[uniqueIdentifier]; ok {
		return utils.NewError(utils.ErrListenerExist, nil)
	}

	c.notificationListeners[uniqueIdentifier] = notificationListener
	return nil
}

func (c *Controller) RemoveNotificationListener(uniqueIdentifier string) {
	c.notificationListenersMu.Lock()
	defer c.notificationListenersMu.Unlock()

	delete(c.notificationListeners, uniqueIdentifier)
}

func (c *Controller) publishStateChanged(snapshot Snapshot) {
	c.notificationListenersMu.RLock()
	defer c.notificationListenersMu.RUnlock()

	for _, notificationListener := range c.notificationListeners {
		notificationListener.OnSessionStateChanged(snapshot)
	}
}

func (c *Controller) publishBallotConfirmed(submission election.BallotSubmission) {
	c.notificationListenersMu.RLock()
	defer c.notificationListenersMu.RUnlock()

	for _, notificationListener := range c.notificationListeners {
		notificationListener.OnBallotConfirmed(submission)
	}
}
