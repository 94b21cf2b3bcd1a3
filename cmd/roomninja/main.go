package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomninja/roomninja/internal/api"
	"github.com/roomninja/roomninja/internal/calendar"
	"github.com/roomninja/roomninja/internal/config"
	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/nlu"
	"github.com/roomninja/roomninja/internal/repository"
	"github.com/roomninja/roomninja/internal/service"
	"github.com/roomninja/roomninja/internal/signature"
	"github.com/roomninja/roomninja/internal/tracking"
	"github.com/roomninja/roomninja/internal/web"
)

// subscriptionRenewInterval is how often the coordinator walks all
// organizations. Subscriptions expire after a day, so every six hours leaves
// plenty of slack.
const subscriptionRenewInterval = 6 * time.Hour

// allowAllSecurity grants every caller. Real deployments plug in an
// organization-specific rights checker; nothing in this binary issues keys.
type allowAllSecurity struct{}

func (allowAllSecurity) GetRights(ctx context.Context, roomAddress, securityKey string) (service.SecurityStatus, error) {
	return service.SecurityGranted, nil
}

func main() {
	config.Load()

	calendarConfig := config.GetCalendarConfig()
	redisConfig := config.GetRedisConfig()

	// Initialize the repositories using the factory
	meetingInfoRepo, subscriptionRepo, cleanup, err := repository.New(redisConfig)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer cleanup()

	if !calendarConfig.Credentials.Valid() {
		log.Printf("Warning: default calendar credentials not configured")
	}

	calendarClient := calendar.NewClient(calendarConfig.Credentials)

	// SSE hub pushing room updates to connected status boards
	hub := web.NewHub()
	defer hub.Close()

	roomService := service.NewRoomService(service.RoomServiceParams{
		Calendar:    calendarClient,
		MeetingInfo: meetingInfoRepo,
		Security:    allowAllSecurity{},
		Signatures:  signature.NewService(calendarConfig.SignatureSecret),
		Tracker:     tracking.NewTracker(),
		Broadcaster: hub,
		Config:      calendarConfig,
	})

	// NLU-backed conversation endpoints, enabled when a model is configured
	var nluService nlu.Service
	if nluConfig := config.GetNLUConfig(); nluConfig.Configured() {
		nluService = nlu.NewClient(nluConfig.Endpoint, nluConfig.AppID, nluConfig.Key)
	} else {
		log.Printf("NLU service not configured, conversation endpoints disabled")
	}

	mux := api.SetupRoutes(roomService, subscriptionRepo, hub.Handler(), nluService)

	// Keep push subscriptions alive for every organization's rooms
	coordinatorCtx, stopCoordinator := context.WithCancel(context.Background())
	defer stopCoordinator()
	if calendarConfig.UseChangeNotification && calendarConfig.WebhookURL != "" {
		coordinator := service.NewSubscriptionCoordinator(subscriptionRepo,
			func(creds models.CalendarCredentials) calendar.SubscriptionAPI {
				return calendar.NewClient(creds)
			},
			calendarConfig.WebhookURL)
		go coordinator.Run(coordinatorCtx, subscriptionRenewInterval)
	} else {
		log.Printf("Change notifications disabled, skipping subscription coordinator")
	}

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting roomninja server on port %s", port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		log.Println("Shutting down server...")

		stopCoordinator()
		hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Fatalf("Error shutting down server: %v", err)
		}

		log.Println("Server gracefully stopped")
	}
}
