package models

// RoomList is a named collection of rooms defined on the calendar server
type RoomList struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Room identifies a single bookable room
type Room struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// RoomRecord is the persisted per-room record used by the subscription
// coordinator. SubscriptionID is empty until a push subscription has been
// created for the room.
type RoomRecord struct {
	OrganizationID string `json:"organization_id"`
	RoomID         string `json:"room_id"`
	RoomAddress    string `json:"room_address"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// ClientState is the correlation token attached to a push subscription so
// that incoming notifications can be matched back to the room record.
func (r *RoomRecord) ClientState() string {
	return r.OrganizationID + "_" + r.RoomID
}

// CalendarCredentials holds an organization's application credentials for the
// external calendar service.
type CalendarCredentials struct {
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Valid reports whether enough configuration is present to authenticate
func (c CalendarCredentials) Valid() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}
