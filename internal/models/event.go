package models

// ChangeNotification is the payload the calendar service POSTs to our
// webhook endpoint when a tracked room's events change. Several item
// notifications may be batched into one delivery.
type ChangeNotification struct {
	Value []ChangeNotificationItem `json:"value"`
}

// ChangeNotificationItem describes a single created/updated/deleted event
// notification for one push subscription.
type ChangeNotificationItem struct {
	SubscriptionID string `json:"subscription_id"`
	ClientState    string `json:"client_state"`
	ChangeType     string `json:"change_type"`
	Resource       string `json:"resource,omitempty"`
}

// ParseClientState splits the correlation token back into organization and
// room ids. The second return value is false when the token is malformed.
func (i ChangeNotificationItem) ParseClientState() (orgID, roomID string, ok bool) {
	for idx := 0; idx < len(i.ClientState); idx++ {
		if i.ClientState[idx] == '_' {
			return i.ClientState[:idx], i.ClientState[idx+1:], idx > 0 && idx < len(i.ClientState)-1
		}
	}
	return "", "", false
}
