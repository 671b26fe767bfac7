package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
)

const (
	requesterID   = int64(1001)
	requesterChat = int64(1001)
)

type fakeDeliveryStore struct {
	sessions map[string]e.Session
	files    map[string][]e.File
}

func (f *fakeDeliveryStore) SessionByToken(_ context.Context, token string) (e.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return e.Session{}, e.ErrNotFound
	}
	return s, nil
}

func (f *fakeDeliveryStore) FilesBySession(_ context.Context, token string) ([]e.File, error) {
	return f.files[token], nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) GetSetting(_ context.Context, key, defaultValue string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

type copyCall struct {
	fromChatID int64
	messageID  int
	toChatID   int64
	protect    bool
}

type fakeDeliveryMessenger struct {
	memberships map[string]e.Membership
	lookupErr   map[string]error

	failMessageIDs map[int]bool
	copies         []copyCall
	nextMsgID      int
}

func (f *fakeDeliveryMessenger) CopyItem(_ context.Context, fromChatID int64, messageID int, toChatID int64, protect bool) (int, error) {
	if f.failMessageIDs[messageID] {
		return 0, errors.New("message gone")
	}

	f.copies = append(f.copies, copyCall{fromChatID, messageID, toChatID, protect})
	f.nextMsgID++
	return 5000 + f.nextMsgID, nil
}

func (f *fakeDeliveryMessenger) GetMembership(_ context.Context, channel string, _ int64) (e.Membership, error) {
	if err := f.lookupErr[channel]; err != nil {
		return e.MembershipUnknown, err
	}
	if m, ok := f.memberships[channel]; ok {
		return m, nil
	}
	return e.MembershipMember, nil
}

type scheduleCall struct {
	sessionToken string
	chatID       int64
	messageIDs   []int
	dueAt        time.Time
}

type fakeDeleteScheduler struct {
	calls []scheduleCall
}

func (f *fakeDeleteScheduler) Schedule(_ context.Context, sessionToken string, chatID int64, messageIDs []int, dueAt time.Time) (string, error) {
	f.calls = append(f.calls, scheduleCall{sessionToken, chatID, messageIDs, dueAt})
	return "action-1", nil
}

func testSession(token string) e.Session {
	return e.Session{
		Token:     token,
		OwnerID:   operatorID,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testFiles(token string, n int) []e.File {
	files := make([]e.File, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, e.File{
			SessionToken:   token,
			Position:       i,
			Kind:           e.FileKindDocument,
			VaultChatID:    -100500,
			VaultMessageID: 200 + i,
		})
	}
	return files
}

func newDelivery(store *fakeDeliveryStore, settings *fakeSettings, messenger *fakeDeliveryMessenger, scheduler *fakeDeleteScheduler) *DeliverySrv {
	return &DeliverySrv{
		Log:        testLogger(),
		OperatorID: operatorID,
		Store:      store,
		Settings:   settings,
		Messenger:  messenger,
		Scheduler:  scheduler,
		Now: func() time.Time {
			return time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
		},
	}
}

func TestDeliverNotFound(t *testing.T) {
	srv := newDelivery(
		&fakeDeliveryStore{sessions: map[string]e.Session{}},
		&fakeSettings{}, &fakeDeliveryMessenger{}, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "nosuchtoken", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryNotFound, rep.Status)
}

func TestDeliverRevoked(t *testing.T) {
	session := testSession("tok")
	session.Revoked = true

	messenger := &fakeDeliveryMessenger{}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": session},
			files:    map[string][]e.File{"tok": testFiles("tok", 2)},
		},
		&fakeSettings{}, messenger, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryRevoked, rep.Status)
	assert.Empty(t, messenger.copies)
}

func TestDeliverExpired(t *testing.T) {
	srv := newDelivery(
		&fakeDeliveryStore{sessions: map[string]e.Session{"tok": testSession("tok")}},
		&fakeSettings{}, &fakeDeliveryMessenger{}, &fakeDeleteScheduler{},
	)
	srv.SessionTTL = 30 * time.Minute // created an hour before Now

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryExpired, rep.Status)
}

func TestDeliverOrderAndProtection(t *testing.T) {
	store := &fakeDeliveryStore{
		sessions: map[string]e.Session{"tok": testSession("tok")},
		files:    map[string][]e.File{"tok": testFiles("tok", 4)},
	}
	store.sessions["tok"] = func() e.Session {
		s := store.sessions["tok"]
		s.Protect = true
		return s
	}()

	messenger := &fakeDeliveryMessenger{}
	srv := newDelivery(store, &fakeSettings{}, messenger, &fakeDeleteScheduler{})

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryOK, rep.Status)
	assert.Equal(t, 4, rep.Delivered)

	require.Len(t, messenger.copies, 4)
	for i, call := range messenger.copies {
		assert.Equal(t, 200+i, call.messageID, "files must be redelivered in stored order")
		assert.True(t, call.protect, "non-operator gets protected copies")
	}
}

func TestDeliverOperatorExemption(t *testing.T) {
	session := testSession("tok")
	session.Protect = true

	messenger := &fakeDeliveryMessenger{}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": session},
			files:    map[string][]e.File{"tok": testFiles("tok", 1)},
		},
		&fakeSettings{}, messenger, &fakeDeleteScheduler{},
	)

	_, err := srv.Deliver(context.Background(), "tok", operatorID, operatorID)
	require.NoError(t, err)

	require.Len(t, messenger.copies, 1)
	assert.False(t, messenger.copies[0].protect, "operator always receives unprotected copies")
}

func TestDeliverGateNonMember(t *testing.T) {
	messenger := &fakeDeliveryMessenger{
		memberships: map[string]e.Membership{"@gate": e.MembershipNonMember},
	}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": testSession("tok")},
			files:    map[string][]e.File{"tok": testFiles("tok", 2)},
		},
		&fakeSettings{values: map[string]string{ForceChannelsKey: "@gate"}},
		messenger, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryMustJoin, rep.Status)
	assert.Equal(t, []string{"@gate"}, rep.RequiredChannels)
	assert.False(t, rep.Unverifiable)
	assert.Empty(t, messenger.copies, "no file leaves on a failed gate")
}

func TestDeliverGateFailsClosedOnLookupError(t *testing.T) {
	messenger := &fakeDeliveryMessenger{
		lookupErr: map[string]error{"@gate": errors.New("channel unresolvable")},
	}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": testSession("tok")},
			files:    map[string][]e.File{"tok": testFiles("tok", 2)},
		},
		&fakeSettings{values: map[string]string{ForceChannelsKey: "@gate"}},
		messenger, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryMustJoin, rep.Status)
	assert.True(t, rep.Unverifiable)
	assert.Empty(t, messenger.copies)
}

func TestDeliverSessionOverrideSupersedesGlobalGate(t *testing.T) {
	session := testSession("tok")
	session.RequiredChannel = "@override"

	messenger := &fakeDeliveryMessenger{
		memberships: map[string]e.Membership{
			"@override": e.MembershipNonMember,
			"@global":   e.MembershipMember,
		},
	}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": session},
			files:    map[string][]e.File{"tok": testFiles("tok", 1)},
		},
		&fakeSettings{values: map[string]string{ForceChannelsKey: "@global"}},
		messenger, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryMustJoin, rep.Status)
	assert.Equal(t, []string{"@override"}, rep.RequiredChannels)
}

func TestDeliverNoFiles(t *testing.T) {
	srv := newDelivery(
		&fakeDeliveryStore{sessions: map[string]e.Session{"tok": testSession("tok")}},
		&fakeSettings{}, &fakeDeliveryMessenger{}, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryNoFiles, rep.Status)
}

func TestDeliverPartialFailure(t *testing.T) {
	messenger := &fakeDeliveryMessenger{failMessageIDs: map[int]bool{201: true}}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": testSession("tok")},
			files:    map[string][]e.File{"tok": testFiles("tok", 3)},
		},
		&fakeSettings{}, messenger, &fakeDeleteScheduler{},
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, e.DeliveryOK, rep.Status)
	assert.Equal(t, 2, rep.Delivered)
	assert.Equal(t, 1, rep.Failed)
}

func TestDeliverSchedulesRetention(t *testing.T) {
	session := testSession("tok")
	session.RetentionSeconds = 600

	scheduler := &fakeDeleteScheduler{}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": session},
			files:    map[string][]e.File{"tok": testFiles("tok", 2)},
		},
		&fakeSettings{}, &fakeDeliveryMessenger{}, scheduler,
	)

	rep, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Delivered)

	require.Len(t, scheduler.calls, 1)
	call := scheduler.calls[0]
	assert.Equal(t, "tok", call.sessionToken)
	assert.Equal(t, requesterChat, call.chatID)
	assert.Len(t, call.messageIDs, 2)
	assert.Equal(t, srv.Now().Add(10*time.Minute), call.dueAt)
}

func TestDeliverNoRetentionNoSchedule(t *testing.T) {
	scheduler := &fakeDeleteScheduler{}
	srv := newDelivery(
		&fakeDeliveryStore{
			sessions: map[string]e.Session{"tok": testSession("tok")},
			files:    map[string][]e.File{"tok": testFiles("tok", 1)},
		},
		&fakeSettings{}, &fakeDeliveryMessenger{}, scheduler,
	)

	_, err := srv.Deliver(context.Background(), "tok", requesterID, requesterChat)
	require.NoError(t, err)
	assert.Empty(t, scheduler.calls)
}

func TestSplitChannels(t *testing.T) {
	assert.Nil(t, SplitChannels(""))
	assert.Equal(t, []string{"@a"}, SplitChannels("@a"))
	assert.Equal(t, []string{"@a", "@b", "@c"}, SplitChannels("@a, @b @c"))
}
