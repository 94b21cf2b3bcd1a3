package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/roomninja/roomninja/internal/cache"
	"github.com/roomninja/roomninja/internal/calendar"
	"github.com/roomninja/roomninja/internal/config"
	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/repository"
	"github.com/roomninja/roomninja/internal/utils"
)

const (
	// eventWindowDays is how many days past today upcoming events cover
	eventWindowDays = 2
	// roomListTTL bounds the room-list and room-membership caches
	roomListTTL = 24 * time.Hour
	// maxNewMeetingMinutes caps ad-hoc meetings started from the room panel
	maxNewMeetingMinutes = 120
)

// RoomServiceParams collects the collaborators a RoomService needs. Calendar,
// MeetingInfo, Security, Signatures, Tracker and Broadcaster are required;
// the messaging collaborators may be nil, which disables MessageMeeting's
// corresponding channel.
type RoomServiceParams struct {
	Calendar    calendar.Service
	MeetingInfo repository.MeetingInfoRepository
	Security    SecurityChecker
	Signatures  SignatureService
	Tracker     ChangeTracker
	Broadcaster Broadcaster
	IM          InstantMessenger
	SMS         SMSMessenger
	SMSLookup   SMSAddressLookup
	Config      config.CalendarConfig

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// RoomService computes room status snapshots and drives meeting lifecycle
// mutations. Status is always derived, never stored: the calendar owns
// scheduling, the meeting-info repository owns started/cancelled/ended-early.
type RoomService struct {
	calendar    calendar.Service
	meetingInfo repository.MeetingInfoRepository
	security    SecurityChecker
	signatures  SignatureService
	tracker     ChangeTracker
	broadcaster Broadcaster
	im          InstantMessenger
	sms         SMSMessenger
	smsLookup   SMSAddressLookup
	cfg         config.CalendarConfig
	now         func() time.Time

	eventCache    *cache.Cache[[]*calendar.Event]
	roomListCache *cache.Cache[[]models.RoomList]
	roomsCache    *cache.Cache[[]models.Room]
}

// NewRoomService creates a room service from its collaborators
func NewRoomService(p RoomServiceParams) *RoomService {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		calendar:      p.Calendar,
		meetingInfo:   p.MeetingInfo,
		security:      p.Security,
		signatures:    p.Signatures,
		tracker:       p.Tracker,
		broadcaster:   p.Broadcaster,
		im:            p.IM,
		sms:           p.SMS,
		smsLookup:     p.SMSLookup,
		cfg:           p.Config,
		now:           now,
		eventCache:    cache.New[[]*calendar.Event](),
		roomListCache: cache.New[[]models.RoomList](),
		roomsCache:    cache.New[[]models.Room](),
	}
}

// upcomingEvents fetches the room's events from today through the lookahead
// window, memoized per room. Tracked rooms cache without expiry; change
// notifications evict instead.
func (s *RoomService) upcomingEvents(ctx context.Context, roomAddress string) ([]*calendar.Event, error) {
	ttl := s.cfg.CacheTTL
	if s.tracker.IsTracked(roomAddress) {
		ttl = 0
	}

	return s.eventCache.GetOrLoad(ctx, roomAddress, ttl, func(ctx context.Context) ([]*calendar.Event, error) {
		now := s.now()
		windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		windowEnd := windowStart.AddDate(0, 0, eventWindowDays+1)
		return s.calendar.FindUpcomingEvents(ctx, roomAddress, windowStart, windowEnd)
	})
}

// upcomingMeetings merges the room's upcoming events with their locally-owned
// lifecycle flags, dropping "free" events when configured to.
func (s *RoomService) upcomingMeetings(ctx context.Context, roomAddress string) ([]*models.Meeting, error) {
	events, err := s.upcomingEvents(ctx, roomAddress)
	if err != nil {
		return nil, err
	}

	if s.cfg.IgnoreFree {
		kept := make([]*calendar.Event, 0, len(events))
		for _, e := range events {
			if e.ShowAs != calendar.ShowAsFree {
				kept = append(kept, e)
			}
		}
		events = kept
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	infos, err := s.meetingInfo.GetMeetingInfo(ctx, ids)
	if err != nil {
		return nil, err
	}

	meetings := make([]*models.Meeting, len(events))
	for i, e := range events {
		meetings[i] = buildMeeting(e, infos[i])
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].Start.Before(meetings[j].Start) })
	return meetings, nil
}

// buildMeeting merges one event with its lifecycle flags. Private meetings
// keep their timing but hide the subject.
func buildMeeting(e *calendar.Event, info *models.MeetingInfo) *models.Meeting {
	m := &models.Meeting{
		ID:                e.ID,
		Subject:           e.Subject,
		Organizer:         e.Organizer.Address,
		Start:             e.Start,
		End:               e.End,
		IsAllDay:          e.IsAllDay,
		RequiredAttendees: len(e.RequiredAttendees),
		OptionalAttendees: len(e.OptionalAttendees),
		ExternalAttendees: countExternal(e),
		IsStarted:         info.IsStarted,
		IsEndedEarly:      info.IsEndedEarly,
		IsCancelled:       info.IsCancelled,
		IsNotManaged:      !models.Managed(e.IsAllDay, e.Start, e.End),
	}
	if e.Sensitivity == calendar.SensitivityPrivate {
		m.Subject = "Private meeting"
	}
	return m
}

// countExternal counts attendees outside the organizer's mail domain
func countExternal(e *calendar.Event) int {
	domain := addressDomain(e.Organizer.Address)
	if domain == "" {
		return 0
	}
	n := 0
	for _, a := range append(append([]calendar.Attendee{}, e.RequiredAttendees...), e.OptionalAttendees...) {
		if addressDomain(a.Address) != domain {
			n++
		}
	}
	return n
}

func addressDomain(address string) string {
	_, domain, ok := strings.Cut(address, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

// GetStatus computes the room's occupancy snapshot. Read-only, no security
// gate.
func (s *RoomService) GetStatus(ctx context.Context, roomAddress string) (*models.RoomStatusInfo, error) {
	meetings, err := s.upcomingMeetings(ctx, roomAddress)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var previous *models.Meeting
	for _, m := range meetings {
		if !m.End.After(now) && (previous == nil || m.End.After(previous.End)) {
			previous = m
		}
	}

	// live = not cancelled, not ended early, still ending after now
	var current, next *models.Meeting
	for _, m := range meetings {
		if m.IsCancelled || m.IsEndedEarly || !m.End.After(now) {
			continue
		}
		if current == nil {
			current = m
		} else if next == nil {
			next = m
		} else {
			break
		}
	}

	info := &models.RoomStatusInfo{
		IsTrackingChanges: s.tracker.IsTracked(roomAddress),
		NearTermMeetings:  meetings,
		PreviousMeeting:   previous,
		CurrentMeeting:    current,
		NextMeeting:       next,
	}

	switch {
	case current == nil:
		info.Status = models.StatusFree
	case now.Before(current.Start):
		// pre-start occupancy requires an explicit start
		if current.IsStarted {
			info.Status = models.StatusBusy
		} else {
			info.Status = models.StatusFree
		}
		info.NextChangeSeconds = current.Start.Sub(now).Seconds()
	default:
		if current.IsStarted {
			info.Status = models.StatusBusy
		} else {
			info.Status = models.StatusBusyNotConfirmed
		}
		info.NextChangeSeconds = current.End.Sub(now).Seconds()
	}

	return info, nil
}

// securityCheck requires granted rights and the event to be among the room's
// upcoming meetings.
func (s *RoomService) securityCheck(ctx context.Context, roomAddress, eventID, securityKey string) (*models.Meeting, error) {
	rights, err := s.security.GetRights(ctx, roomAddress, securityKey)
	if err != nil {
		return nil, fmt.Errorf("rights lookup failed: %w", err)
	}
	if rights != SecurityGranted {
		return nil, ErrUnauthorized
	}
	return s.findMeeting(ctx, roomAddress, eventID)
}

func (s *RoomService) findMeeting(ctx context.Context, roomAddress, eventID string) (*models.Meeting, error) {
	meetings, err := s.upcomingMeetings(ctx, roomAddress)
	if err != nil {
		return nil, err
	}
	for _, m := range meetings {
		if m.ID == eventID {
			return m, nil
		}
	}
	return nil, ErrEventNotFound
}

// broadcastUpdate evicts the room's cached events and notifies connected
// clients. Called after every successful mutation.
func (s *RoomService) broadcastUpdate(roomAddress string) {
	s.eventCache.Invalidate(roomAddress)
	s.broadcaster.NotifyRoomUpdated(roomAddress)
}

// HandleRoomChanged reacts to an external change notification: the room's
// cached events are evicted and connected clients are told to refresh.
func (s *RoomService) HandleRoomChanged(roomAddress string) {
	log.Printf("Calendar change notification for %s", utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
}

// StartMeeting confirms occupancy for an upcoming meeting
func (s *RoomService) StartMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	if _, err := s.securityCheck(ctx, roomAddress, eventID, securityKey); err != nil {
		return err
	}
	if err := s.meetingInfo.StartMeeting(ctx, eventID); err != nil {
		return err
	}
	log.Printf("Meeting %s started in %s", utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
	return nil
}

// StartMeetingFromClient starts a meeting authorized by a signed token
// instead of a rights lookup. An invalid signature or unknown event reports
// false without error; state is only mutated on a true return.
func (s *RoomService) StartMeetingFromClient(ctx context.Context, roomAddress, eventID, sig string) (bool, error) {
	if !s.signatures.Verify(eventID, sig) {
		return false, nil
	}
	if _, err := s.findMeeting(ctx, roomAddress, eventID); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.meetingInfo.StartMeeting(ctx, eventID); err != nil {
		return false, err
	}
	log.Printf("Meeting %s started via signed link in %s", utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
	return true, nil
}

// CancelMeeting releases a meeting that never started: the external event's
// end is rewritten to now (or to its own start if that is still ahead), the
// meeting is flagged cancelled, and the organizer is notified.
func (s *RoomService) CancelMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	meeting, err := s.securityCheck(ctx, roomAddress, eventID, securityKey)
	if err != nil {
		return err
	}
	if meeting.IsNotManaged {
		return ErrNotManaged
	}

	newEnd := s.truncatedEnd(meeting)
	if err := s.calendar.RewriteEventEnd(ctx, roomAddress, eventID, newEnd); err != nil {
		return fmt.Errorf("failed to rewrite event end: %w", err)
	}
	if err := s.meetingInfo.CancelMeeting(ctx, eventID); err != nil {
		return err
	}

	s.notifyOrganizer(ctx, roomAddress, meeting,
		"Your meeting has been cancelled",
		fmt.Sprintf("Your meeting in %s was cancelled because nobody started it.", roomAddress))

	log.Printf("Meeting %s cancelled in %s", utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
	return nil
}

// EndMeeting ends a running meeting early, freeing the room for the rest of
// its slot.
func (s *RoomService) EndMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	meeting, err := s.securityCheck(ctx, roomAddress, eventID, securityKey)
	if err != nil {
		return err
	}
	if meeting.IsNotManaged {
		return ErrNotManaged
	}

	newEnd := s.truncatedEnd(meeting)
	if err := s.calendar.RewriteEventEnd(ctx, roomAddress, eventID, newEnd); err != nil {
		return fmt.Errorf("failed to rewrite event end: %w", err)
	}
	if err := s.meetingInfo.EndMeeting(ctx, eventID); err != nil {
		return err
	}

	s.notifyOrganizer(ctx, roomAddress, meeting,
		"Your meeting has ended",
		fmt.Sprintf("Your meeting in %s was ended early.", roomAddress))

	log.Printf("Meeting %s ended early in %s", utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
	return nil
}

// truncatedEnd is the rewritten end instant for a cancel/end mutation: now
// truncated to the minute, but never before the meeting's own start.
func (s *RoomService) truncatedEnd(meeting *models.Meeting) time.Time {
	end := s.now().Truncate(time.Minute)
	if end.Before(meeting.Start) {
		end = meeting.Start
	}
	return end
}

// notifyOrganizer emails the organizer, cc'ing internal attendees. Mail
// failures are logged, not propagated: the mutation already happened.
func (s *RoomService) notifyOrganizer(ctx context.Context, roomAddress string, meeting *models.Meeting, subject, body string) {
	events, err := s.upcomingEvents(ctx, roomAddress)
	if err != nil {
		log.Printf("Error loading events for notification: %v", err)
		return
	}
	var event *calendar.Event
	for _, e := range events {
		if e.ID == meeting.ID {
			event = e
			break
		}
	}
	if event == nil || event.Organizer.Address == "" {
		return
	}

	if err := s.calendar.SendEmail(ctx, event.Organizer, internalAttendees(event), subject, body); err != nil {
		log.Printf("Error sending notification email for %s: %v", utils.SanitizeLogString(meeting.ID), err)
	}
}

// internalAttendees returns the attendees sharing the organizer's mail domain
func internalAttendees(e *calendar.Event) []calendar.Attendee {
	domain := addressDomain(e.Organizer.Address)
	var internal []calendar.Attendee
	for _, a := range append(append([]calendar.Attendee{}, e.RequiredAttendees...), e.OptionalAttendees...) {
		if domain != "" && addressDomain(a.Address) == domain {
			internal = append(internal, a)
		}
	}
	return internal
}

// MessageMeeting asks the current occupants to wrap up, over instant message
// and SMS. Lifecycle state is not touched.
func (s *RoomService) MessageMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	meeting, err := s.securityCheck(ctx, roomAddress, eventID, securityKey)
	if err != nil {
		return err
	}
	if meeting.IsNotManaged {
		return ErrNotManaged
	}

	events, err := s.upcomingEvents(ctx, roomAddress)
	if err != nil {
		return err
	}
	var addresses []string
	for _, e := range events {
		if e.ID != eventID {
			continue
		}
		if e.Organizer.Address != "" {
			addresses = append(addresses, e.Organizer.Address)
		}
		for _, a := range internalAttendees(e) {
			addresses = append(addresses, a.Address)
		}
		break
	}
	if len(addresses) == 0 {
		return nil
	}

	body := fmt.Sprintf("Someone is waiting for %s. Please wrap up your meeting.", roomAddress)

	if s.im != nil {
		if err := s.im.SendInstantMessage(ctx, addresses, "Please wrap up your meeting", body, true); err != nil {
			log.Printf("Error sending instant message for %s: %v", utils.SanitizeLogString(eventID), err)
			return err
		}
	}
	if s.sms != nil && s.smsLookup != nil {
		numbers, err := s.smsLookup.LookupSMSAddresses(ctx, addresses)
		if err != nil {
			log.Printf("Error looking up SMS numbers for %s: %v", utils.SanitizeLogString(eventID), err)
			return err
		}
		if len(numbers) > 0 {
			if err := s.sms.SendSMS(ctx, numbers, body); err != nil {
				log.Printf("Error sending SMS for %s: %v", utils.SanitizeLogString(eventID), err)
				return err
			}
		}
	}
	return nil
}

// StartNewMeeting books the room ad hoc, from now, and marks the new meeting
// started. The room must be free; the duration is clamped so the new meeting
// cannot overlap the next scheduled one and never exceeds two hours.
func (s *RoomService) StartNewMeeting(ctx context.Context, roomAddress, securityKey, title string, minutes int) (string, error) {
	rights, err := s.security.GetRights(ctx, roomAddress, securityKey)
	if err != nil {
		return "", fmt.Errorf("rights lookup failed: %w", err)
	}
	if rights != SecurityGranted {
		return "", ErrUnauthorized
	}

	status, err := s.GetStatus(ctx, roomAddress)
	if err != nil {
		return "", err
	}
	if status.Status != models.StatusFree {
		return "", ErrRoomNotFree
	}

	now := s.now()
	limit := maxNewMeetingMinutes
	if status.CurrentMeeting != nil && status.CurrentMeeting.Start.After(now) {
		if until := int(status.CurrentMeeting.Start.Sub(now).Minutes()); until < limit {
			limit = until
		}
	}
	if minutes > limit {
		minutes = limit
	}
	if minutes < 0 {
		minutes = 0
	}

	if title == "" {
		title = "Ad-hoc meeting"
	}
	eventID, err := s.calendar.CreateEvent(ctx, roomAddress, now, now.Add(time.Duration(minutes)*time.Minute),
		title, "Booked from the room panel.")
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	if err := s.meetingInfo.StartMeeting(ctx, eventID); err != nil {
		return "", err
	}

	log.Printf("New %d-minute meeting %s started in %s", minutes, utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	s.broadcastUpdate(roomAddress)
	return eventID, nil
}

// WarnMeeting emails the organizer that their meeting is about to be
// cancelled, with a signed start link. buildURL turns the signature into the
// link the mail carries.
func (s *RoomService) WarnMeeting(ctx context.Context, roomAddress, eventID, securityKey string, buildURL func(sig string) string) error {
	meeting, err := s.securityCheck(ctx, roomAddress, eventID, securityKey)
	if err != nil {
		return err
	}
	if meeting.IsNotManaged {
		return ErrNotManaged
	}

	startURL := buildURL(s.signatures.Sign(eventID))
	s.notifyOrganizer(ctx, roomAddress, meeting,
		"Your meeting is about to be released",
		fmt.Sprintf("Nobody has started your meeting in %s. Start it now or it will be cancelled: %s", roomAddress, startURL))

	log.Printf("Warned organizer of meeting %s in %s", utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress))
	return nil
}

// GetInfo resolves the room's display name and the caller's rights. When
// rights are granted and change notification is enabled the room starts being
// tracked, switching its cache to push-driven freshness.
func (s *RoomService) GetInfo(ctx context.Context, roomAddress, securityKey string) (*models.RoomInfo, error) {
	displayName, err := s.calendar.ResolveRoomIdentity(ctx, roomAddress)
	if err != nil {
		return nil, err
	}

	rights, err := s.security.GetRights(ctx, roomAddress, securityKey)
	if err != nil {
		return nil, fmt.Errorf("rights lookup failed: %w", err)
	}
	if rights == SecurityGranted && s.cfg.UseChangeNotification {
		s.tracker.Track(roomAddress)
	}

	return &models.RoomInfo{
		CurrentTime:    s.now().UnixMilli(),
		DisplayName:    displayName,
		SecurityStatus: rights.String(),
	}, nil
}

// RoomLists returns the room lists defined on the calendar server, cached for
// a day.
func (s *RoomService) RoomLists(ctx context.Context) ([]models.RoomList, error) {
	return s.roomListCache.GetOrLoad(ctx, "roomlists", roomListTTL, func(ctx context.Context) ([]models.RoomList, error) {
		return s.calendar.RoomLists(ctx)
	})
}

// Rooms returns the rooms in the given room list, cached for a day
func (s *RoomService) Rooms(ctx context.Context, roomListAddress string) ([]models.Room, error) {
	return s.roomsCache.GetOrLoad(ctx, roomListAddress, roomListTTL, func(ctx context.Context) ([]models.Room, error) {
		return s.calendar.Rooms(ctx, roomListAddress)
	})
}
