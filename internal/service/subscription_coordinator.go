package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/roomninja/roomninja/internal/calendar"
	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/repository"
	"github.com/roomninja/roomninja/internal/utils"
)

// subscriptionLifetime is how far out renewed and created subscriptions expire
const subscriptionLifetime = 24 * time.Hour

// SubscriptionAPIFactory builds a per-organization subscription client from
// that organization's calendar credentials.
type SubscriptionAPIFactory func(creds models.CalendarCredentials) calendar.SubscriptionAPI

// SubscriptionCoordinator keeps push subscriptions alive across every
// organization's rooms. Each pass renews existing subscriptions and creates
// replacements for rooms whose renewal failed or that never had one.
type SubscriptionCoordinator struct {
	repo            repository.SubscriptionRepository
	apiFor          SubscriptionAPIFactory
	notificationURL string
	now             func() time.Time
}

// NewSubscriptionCoordinator creates a coordinator. notificationURL is where
// the calendar delivers change notifications (the webhook endpoint).
func NewSubscriptionCoordinator(repo repository.SubscriptionRepository, apiFor SubscriptionAPIFactory, notificationURL string) *SubscriptionCoordinator {
	return &SubscriptionCoordinator{
		repo:            repo,
		apiFor:          apiFor,
		notificationURL: notificationURL,
		now:             time.Now,
	}
}

// RenewAll runs one renewal pass over every organization. Organizations
// without credentials are skipped with a log note; room failures are logged
// and never abort sibling rooms. All rooms of an organization are awaited
// before the next organization starts.
func (c *SubscriptionCoordinator) RenewAll(ctx context.Context) error {
	orgs, err := c.repo.Organizations(ctx)
	if err != nil {
		return err
	}

	for _, orgID := range orgs {
		creds, err := c.repo.CalendarCredentials(ctx, orgID)
		switch {
		case err != nil:
			log.Printf("Skipping organization %s: credentials unavailable: %v", utils.SanitizeLogString(orgID), err)
			continue
		case !creds.Valid():
			log.Printf("Skipping organization %s: no calendar credentials configured", utils.SanitizeLogString(orgID))
			continue
		}

		rooms, err := c.repo.Rooms(ctx, orgID)
		if err != nil {
			log.Printf("Error listing rooms for organization %s: %v", utils.SanitizeLogString(orgID), err)
			continue
		}

		api := c.apiFor(creds)

		var wg sync.WaitGroup
		for _, room := range rooms {
			wg.Add(1)
			go func(room *models.RoomRecord) {
				defer wg.Done()
				c.renewRoom(ctx, api, room)
			}(room)
		}
		wg.Wait()
	}
	return nil
}

// renewRoom renews the room's subscription if it has one, falling back to
// creating a fresh subscription when renewal fails or none exists.
func (c *SubscriptionCoordinator) renewRoom(ctx context.Context, api calendar.SubscriptionAPI, room *models.RoomRecord) {
	expiration := c.now().Add(subscriptionLifetime)

	if room.SubscriptionID != "" {
		err := api.RenewSubscription(ctx, room.RoomAddress, room.SubscriptionID, expiration)
		if err == nil {
			return
		}
		log.Printf("Renewal of subscription %s for %s failed, creating a new one: %v",
			utils.SanitizeLogString(room.SubscriptionID), utils.SanitizeLogString(room.RoomAddress), err)
	}

	subscriptionID, err := api.CreateSubscription(ctx, room.RoomAddress, c.notificationURL, room.ClientState(), expiration)
	if err != nil {
		log.Printf("Error creating subscription for %s: %v", utils.SanitizeLogString(room.RoomAddress), err)
		return
	}

	if err := c.repo.SaveSubscriptionID(ctx, room.OrganizationID, room.RoomID, subscriptionID); err != nil {
		log.Printf("Error saving subscription id for %s/%s: %v",
			utils.SanitizeLogString(room.OrganizationID), utils.SanitizeLogString(room.RoomID), err)
	}
}

// Run renews on an interval until the context is cancelled, with one
// immediate pass at startup.
func (c *SubscriptionCoordinator) Run(ctx context.Context, interval time.Duration) {
	if err := c.RenewAll(ctx); err != nil {
		log.Printf("Subscription renewal pass failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RenewAll(ctx); err != nil {
				log.Printf("Subscription renewal pass failed: %v", err)
			}
		}
	}
}
