package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-invites/internal/config"
	"github.com/game-invites/internal/domain"
)

// fakeStore is an in-memory Store for exercising the service layer
type fakeStore struct {
	mu            sync.Mutex
	players       map[int64]*domain.Player
	servers       map[int64]*domain.ComputeServer
	sessions      map[int64]*domain.Session
	invites       map[int64]*domain.Invite
	nextInviteID  int64
	nextSessionID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:  make(map[int64]*domain.Player),
		servers:  make(map[int64]*domain.ComputeServer),
		sessions: make(map[int64]*domain.Session),
		invites:  make(map[int64]*domain.Invite),
	}
}

func (f *fakeStore) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) GetOnlinePlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok || !p.IsOnline {
		return nil, domain.ErrReceiverUnavailable
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) LookupPlayer(ctx context.Context, displayName, playerTag string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.DisplayName == displayName && p.PlayerTag == playerTag {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (f *fakeStore) ListOnlinePlayers(ctx context.Context, excludeID int64) ([]domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Player
	for _, p := range f.players {
		if p.IsOnline && p.ID != excludeID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) TouchPlayerHeartbeat(ctx context.Context, playerID int64, gameOpen bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	now := time.Now()
	p.IsOnline = true
	p.GameOpen = gameOpen
	p.LastHeartbeat = &now
	return nil
}

func (f *fakeStore) CreateSession(ctx context.Context, serverID, hostPlayerID int64, sessionCode string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionCode == sessionCode {
			return 0, domain.ErrSessionCodeTaken
		}
	}
	f.nextSessionID++
	f.sessions[f.nextSessionID] = &domain.Session{
		ID:             f.nextSessionID,
		ServerID:       serverID,
		SessionCode:    sessionCode,
		HostPlayerID:   hostPlayerID,
		CurrentPlayers: 1,
		Status:         domain.SessionStatusWaiting,
		CreatedAt:      time.Now(),
	}
	return f.nextSessionID, nil
}

func (f *fakeStore) GetSessionInfo(ctx context.Context, sessionCode string) (*domain.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionInfoLocked(sessionCode)
}

func (f *fakeStore) sessionInfoLocked(sessionCode string) (*domain.SessionInfo, error) {
	for _, s := range f.sessions {
		if s.SessionCode == sessionCode {
			info := &domain.SessionInfo{Session: *s}
			if srv, ok := f.servers[s.ServerID]; ok {
				info.ServerAddress = srv.Address
				info.ServerPort = srv.Port
			}
			return info, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (f *fakeStore) FindHostedSession(ctx context.Context, hostPlayerID int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.HostPlayerID == hostPlayerID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (f *fakeStore) IncrementSessionPlayers(ctx context.Context, sessionCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionCode == sessionCode {
			s.CurrentPlayers++
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (f *fakeStore) DecrementSessionPlayers(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.CurrentPlayers > 0 {
		s.CurrentPlayers--
	}
	return nil
}

func (f *fakeStore) ReassignHostAndDecrement(ctx context.Context, sessionID, leavingPlayerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for _, inv := range f.invites {
		if inv.SessionCode == s.SessionCode &&
			inv.Status == domain.InviteStatusAccepted &&
			inv.ReceiverID != leavingPlayerID {
			s.HostPlayerID = inv.ReceiverID
			break
		}
	}
	if s.CurrentPlayers > 0 {
		s.CurrentPlayers--
	}
	return nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) RegisterServer(ctx context.Context, address string, port, maxPlayers int, region string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.servers) + 1)
	f.servers[id] = &domain.ComputeServer{
		ID: id, Address: address, Port: port, MaxPlayers: maxPlayers, Region: region, IsAvailable: true,
	}
	return id, nil
}

func (f *fakeStore) TouchServerHeartbeat(ctx context.Context, serverID int64) error {
	return nil
}

func (f *fakeStore) FindAvailableServer(ctx context.Context) (*domain.ComputeServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.ComputeServer
	for _, srv := range f.servers {
		if !srv.IsAvailable {
			continue
		}
		if best == nil || srv.CurrentPlayerCount < best.CurrentPlayerCount {
			best = srv
		}
	}
	if best == nil {
		return nil, domain.ErrServerUnavailable
	}
	copied := *best
	return &copied, nil
}

func (f *fakeStore) AdjustServerPlayerCount(ctx context.Context, serverID int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	srv, ok := f.servers[serverID]
	if !ok {
		return domain.ErrServerUnavailable
	}
	srv.CurrentPlayerCount += delta
	if srv.CurrentPlayerCount < 0 {
		srv.CurrentPlayerCount = 0
	}
	return nil
}

func (f *fakeStore) SetServerOccupancy(ctx context.Context, serverID int64, currentPlayers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	srv, ok := f.servers[serverID]
	if !ok {
		return domain.ErrServerUnavailable
	}
	srv.CurrentPlayerCount = currentPlayers
	return nil
}

func (f *fakeStore) RecomputeServerCount(ctx context.Context, serverID int64) error {
	return nil
}

func (f *fakeStore) CreateInvite(ctx context.Context, senderID, receiverID int64, sessionCode string, ttl time.Duration) (*domain.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextInviteID++
	now := time.Now()
	inv := &domain.Invite{
		ID:          f.nextInviteID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		SessionCode: sessionCode,
		Status:      domain.InviteStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	f.invites[inv.ID] = inv
	copied := *inv
	return &copied, nil
}

func (f *fakeStore) HasPendingInvite(ctx context.Context, senderID, receiverID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, inv := range f.invites {
		if inv.SenderID == senderID && inv.ReceiverID == receiverID &&
			inv.Status == domain.InviteStatusPending && !inv.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetInviteForReceiver(ctx context.Context, inviteID, receiverID int64) (*domain.InviteDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[inviteID]
	if !ok || !inv.ActionableBy(receiverID, time.Now()) {
		return nil, domain.ErrInviteNotActionable
	}
	info, err := f.sessionInfoLocked(inv.SessionCode)
	if err != nil {
		return nil, domain.ErrInviteNotActionable
	}
	return &domain.InviteDetail{
		Invite:        *inv,
		SessionID:     info.ID,
		ServerID:      info.ServerID,
		ServerAddress: info.ServerAddress,
		ServerPort:    info.ServerPort,
	}, nil
}

func (f *fakeStore) TransitionInvite(ctx context.Context, inviteID int64, target domain.InviteStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[inviteID]
	if !ok {
		return false, nil
	}
	if !inv.Status.CanTransitionTo(target) || inv.Expired(time.Now()) {
		return false, nil
	}
	inv.Status = target
	return true, nil
}

func (f *fakeStore) ListPendingInvites(ctx context.Context, receiverID int64) ([]domain.PendingInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var out []domain.PendingInvite
	for _, inv := range f.invites {
		if inv.ReceiverID != receiverID || inv.Status != domain.InviteStatusPending || inv.Expired(now) {
			continue
		}
		senderName := ""
		if sender, ok := f.players[inv.SenderID]; ok {
			senderName = sender.FullName()
		}
		out = append(out, domain.PendingInvite{
			InviteID:    inv.ID,
			SenderID:    inv.SenderID,
			SenderName:  senderName,
			SessionCode: inv.SessionCode,
			CreatedAt:   inv.CreatedAt,
			ExpiresAt:   inv.ExpiresAt,
			ExpiresIn:   inv.ExpiresIn(now),
		})
	}
	return out, nil
}

func (f *fakeStore) DeleteExpiredInvites(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var deleted int64
	for id, inv := range f.invites {
		if inv.Expired(now) || inv.Status.Terminal() {
			delete(f.invites, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeNotifier records pushed events and simulates channel availability
type fakeNotifier struct {
	mu     sync.Mutex
	online map[int64]bool
	events []pushedEvent
}

type pushedEvent struct {
	playerID int64
	event    string
	payload  any
}

func newFakeNotifier(online ...int64) *fakeNotifier {
	n := &fakeNotifier{online: make(map[int64]bool)}
	for _, id := range online {
		n.online[id] = true
	}
	return n
}

func (n *fakeNotifier) SendTo(playerID int64, event string, payload any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[playerID] {
		return false
	}
	n.events = append(n.events, pushedEvent{playerID, event, payload})
	return true
}

func (n *fakeNotifier) eventsFor(playerID int64) []pushedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []pushedEvent
	for _, e := range n.events {
		if e.playerID == playerID {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *fakeStore
	notifier *fakeNotifier
	invites  *InviteService
}

// newFixture seeds two online players, a server, and a session hosted by
// player 1 with code HOST01.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	store.players[1] = &domain.Player{ID: 1, DisplayName: "Ada", PlayerTag: "#0001", IsOnline: true}
	store.players[2] = &domain.Player{ID: 2, DisplayName: "Grace", PlayerTag: "#0002", IsOnline: true}

	serverID, err := store.RegisterServer(context.Background(), "10.0.0.5", 7777, 4, "eu-west")
	require.NoError(t, err)

	_, err = store.CreateSession(context.Background(), serverID, 1, "HOST01")
	require.NoError(t, err)
	require.NoError(t, store.AdjustServerPlayerCount(context.Background(), serverID, 1))

	notifier := newFakeNotifier(1, 2)
	logger := testLogger()
	cfg := &config.InviteConfig{TTL: domain.InviteTTL, SweepInterval: time.Minute}

	coordinator := NewSessionCoordinator(store, logger)
	invites := NewInviteService(store, notifier, coordinator, cfg, logger)

	return &fixture{store: store, notifier: notifier, invites: invites}
}

func (fx *fixture) send(t *testing.T) *InviteReceipt {
	t.Helper()
	receipt, err := fx.invites.Send(context.Background(), 1, "Ada#0001", SendRequest{
		ReceiverID:  2,
		SessionCode: "HOST01",
	})
	require.NoError(t, err)
	return receipt
}

func TestSendValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.invites.Send(ctx, 1, "Ada#0001", SendRequest{SessionCode: "HOST01"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = fx.invites.Send(ctx, 1, "Ada#0001", SendRequest{ReceiverID: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = fx.invites.Send(ctx, 1, "Ada#0001", SendRequest{ReceiverID: 1, SessionCode: "HOST01"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest, "self-invite")
}

func TestSendUnknownSession(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.invites.Send(context.Background(), 1, "Ada#0001", SendRequest{
		ReceiverID:  2,
		SessionCode: "ZZZZZZ",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendWithoutStanding(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// A drained session hosted by someone else gives player 3 no standing.
	fx.store.players[3] = &domain.Player{ID: 3, DisplayName: "Alan", PlayerTag: "#0003", IsOnline: true}
	for _, s := range fx.store.sessions {
		s.CurrentPlayers = 0
	}

	_, err := fx.invites.Send(ctx, 3, "Alan#0003", SendRequest{ReceiverID: 2, SessionCode: "HOST01"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The host keeps standing even over an empty session.
	_, err = fx.invites.Send(ctx, 1, "Ada#0001", SendRequest{ReceiverID: 2, SessionCode: "HOST01"})
	assert.NoError(t, err)
}

func TestSendReceiverOffline(t *testing.T) {
	fx := newFixture(t)
	fx.store.players[2].IsOnline = false

	_, err := fx.invites.Send(context.Background(), 1, "Ada#0001", SendRequest{
		ReceiverID:  2,
		SessionCode: "HOST01",
	})
	assert.ErrorIs(t, err, domain.ErrReceiverUnavailable)
}

func TestSendDuplicatePending(t *testing.T) {
	fx := newFixture(t)
	fx.send(t)

	_, err := fx.invites.Send(context.Background(), 1, "Ada#0001", SendRequest{
		ReceiverID:  2,
		SessionCode: "HOST01",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateInvite)
}

func TestSendDeliversPush(t *testing.T) {
	fx := newFixture(t)

	receipt := fx.send(t)
	assert.Equal(t, "HOST01", receipt.SessionCode)
	assert.Equal(t, int64(2), receipt.ReceiverID)
	assert.Equal(t, "Grace#0002", receipt.ReceiverName)
	assert.Greater(t, receipt.ExpiresIn, 0)
	assert.LessOrEqual(t, receipt.ExpiresIn, int(domain.InviteTTL.Seconds()))

	events := fx.notifier.eventsFor(2)
	require.Len(t, events, 1)
	assert.Equal(t, EventInviteReceived, events[0].event)

	payload, ok := events[0].payload.(InviteReceivedPayload)
	require.True(t, ok)
	assert.Equal(t, receipt.InviteID, payload.InviteID)
	assert.Equal(t, "Ada#0001", payload.SenderName)
	assert.Equal(t, "10.0.0.5", payload.ServerIP)
	assert.Equal(t, 7777, payload.ServerPort)
}

func TestSendSucceedsWithoutLiveChannel(t *testing.T) {
	fx := newFixture(t)
	fx.notifier.online[2] = false

	receipt := fx.send(t)
	assert.NotZero(t, receipt.InviteID)
	assert.Empty(t, fx.notifier.eventsFor(2))

	// The invite stays discoverable by polling.
	pending, err := fx.invites.CheckPending(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, receipt.InviteID, pending[0].InviteID)
	assert.Equal(t, "Ada#0001", pending[0].SenderName)
}

func TestRespondInvalidDecision(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	_, err := fx.invites.Respond(context.Background(), 2, receipt.InviteID, "maybe")
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
}

func TestRespondWrongReceiver(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	_, err := fx.invites.Respond(context.Background(), 1, receipt.InviteID, "accept")
	assert.ErrorIs(t, err, domain.ErrInviteNotActionable)
}

func TestRespondDecline(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	result, err := fx.invites.Respond(context.Background(), 2, receipt.InviteID, "decline")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteStatusDeclined, result.Status)
	assert.Empty(t, result.ServerIP)

	events := fx.notifier.eventsFor(1)
	require.Len(t, events, 1)
	assert.Equal(t, EventInviteDeclined, events[0].event)

	// Decline moves no players anywhere.
	info, err := fx.store.GetSessionInfo(context.Background(), "HOST01")
	require.NoError(t, err)
	assert.Equal(t, 1, info.CurrentPlayers)
}

func TestRespondAccept(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	result, err := fx.invites.Respond(context.Background(), 2, receipt.InviteID, "accept")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteStatusAccepted, result.Status)
	assert.Equal(t, "10.0.0.5", result.ServerIP)
	assert.Equal(t, 7777, result.ServerPort)
	assert.Equal(t, "HOST01", result.SessionCode)

	events := fx.notifier.eventsFor(1)
	require.Len(t, events, 1)
	assert.Equal(t, EventInviteAccepted, events[0].event)

	info, err := fx.store.GetSessionInfo(context.Background(), "HOST01")
	require.NoError(t, err)
	assert.Equal(t, 2, info.CurrentPlayers)
	assert.Equal(t, 2, fx.store.servers[info.ServerID].CurrentPlayerCount)
}

func TestRespondAcceptLeavesHostedSession(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// The receiver hosts their own solo session on a second server.
	originServer, err := fx.store.RegisterServer(ctx, "10.0.0.6", 7778, 4, "eu-west")
	require.NoError(t, err)
	originSession, err := fx.store.CreateSession(ctx, originServer, 2, "ORIG02")
	require.NoError(t, err)
	require.NoError(t, fx.store.AdjustServerPlayerCount(ctx, originServer, 1))

	receipt := fx.send(t)
	_, err = fx.invites.Respond(ctx, 2, receipt.InviteID, "accept")
	require.NoError(t, err)

	// Solo origin session is torn down and its server count released.
	_, ok := fx.store.sessions[originSession]
	assert.False(t, ok)
	assert.Equal(t, 0, fx.store.servers[originServer].CurrentPlayerCount)

	info, err := fx.store.GetSessionInfo(ctx, "HOST01")
	require.NoError(t, err)
	assert.Equal(t, 2, info.CurrentPlayers)
}

func TestRespondAcceptReassignsOriginHost(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	originServer, err := fx.store.RegisterServer(ctx, "10.0.0.6", 7778, 4, "eu-west")
	require.NoError(t, err)
	originSession, err := fx.store.CreateSession(ctx, originServer, 2, "ORIG02")
	require.NoError(t, err)

	// A third player already accepted into the origin session.
	fx.store.players[3] = &domain.Player{ID: 3, DisplayName: "Alan", PlayerTag: "#0003", IsOnline: true}
	fx.store.invites[99] = &domain.Invite{
		ID: 99, SenderID: 2, ReceiverID: 3, SessionCode: "ORIG02",
		Status:    domain.InviteStatusAccepted,
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(domain.InviteTTL),
	}
	fx.store.sessions[originSession].CurrentPlayers = 2
	require.NoError(t, fx.store.AdjustServerPlayerCount(ctx, originServer, 2))

	receipt := fx.send(t)
	_, err = fx.invites.Respond(ctx, 2, receipt.InviteID, "accept")
	require.NoError(t, err)

	origin := fx.store.sessions[originSession]
	require.NotNil(t, origin)
	assert.Equal(t, int64(3), origin.HostPlayerID, "hostship passes to a remaining member")
	assert.Equal(t, 1, origin.CurrentPlayers)
	assert.Equal(t, 1, fx.store.servers[originServer].CurrentPlayerCount)
}

func TestRespondOnlyOneDecisionWins(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)
	ctx := context.Background()

	_, err := fx.invites.Respond(ctx, 2, receipt.InviteID, "accept")
	require.NoError(t, err)

	_, err = fx.invites.Respond(ctx, 2, receipt.InviteID, "decline")
	assert.ErrorIs(t, err, domain.ErrInviteNotActionable)

	_, err = fx.invites.Respond(ctx, 2, receipt.InviteID, "accept")
	assert.ErrorIs(t, err, domain.ErrInviteNotActionable)
}

func TestRespondExpiredInvite(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	fx.store.invites[receipt.InviteID].ExpiresAt = time.Now().Add(-time.Second)

	_, err := fx.invites.Respond(context.Background(), 2, receipt.InviteID, "accept")
	assert.ErrorIs(t, err, domain.ErrInviteNotActionable)
}

func TestExpiredInviteClearsDuplicateGuard(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	fx.store.invites[receipt.InviteID].ExpiresAt = time.Now().Add(-time.Second)

	// With the old invite expired, a fresh send is allowed again.
	fresh := fx.send(t)
	assert.NotEqual(t, receipt.InviteID, fresh.InviteID)
}

func TestCheckPendingSkipsExpired(t *testing.T) {
	fx := newFixture(t)
	receipt := fx.send(t)

	pending, err := fx.invites.CheckPending(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	fx.store.invites[receipt.InviteID].ExpiresAt = time.Now().Add(-time.Second)

	pending, err = fx.invites.CheckPending(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCleanup(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	receipt := fx.send(t)
	_, err := fx.invites.Respond(ctx, 2, receipt.InviteID, "decline")
	require.NoError(t, err)

	deleted, err := fx.invites.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Second pass has nothing left to remove.
	deleted, err = fx.invites.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
