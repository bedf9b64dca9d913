package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/notify"
	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_LastSlotRace(t *testing.T) {
	f := newFixture(t)
	scrim := f.scrim(t, 1, 5000)

	const reservers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < reservers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reservation.Reserve(context.Background(), scrim.ID, uuid.New(), player("racer"))
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, reservers-1, full)

	got, err := f.repo.Scrim.FindByID(context.Background(), scrim.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}

func TestReserve_ConcurrentDuplicatesKeepOneActiveBooking(t *testing.T) {
	f := newFixture(t)
	scrim := f.scrim(t, 5, 0)
	playerID := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reservation.Reserve(context.Background(), scrim.ID, playerID, player("dup"))
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyBooked)
				return
			}
			mu.Lock()
			success++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	count, err := f.repo.Booking.CountByPlayerID(context.Background(), playerID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, _ := f.repo.Scrim.FindByID(context.Background(), scrim.ID)
	assert.Equal(t, []uuid.UUID{playerID}, got.Participants)
}

func TestReserve_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reservation.Reserve(ctx, uuid.New(), uuid.New(), player("ghost"))
	assert.ErrorIs(t, err, ErrScrimNotFound)

	scrim := f.scrim(t, 4, 0)
	scrim.ID = uuid.New()
	scrim.Status = entity.ScrimStatusOngoing
	require.NoError(t, f.repo.Scrim.Create(ctx, scrim))

	_, err = f.svc.Reservation.Reserve(ctx, scrim.ID, uuid.New(), player("late"))
	assert.ErrorIs(t, err, ErrNotBookable)

	got, _ := f.repo.Scrim.FindByID(ctx, scrim.ID)
	assert.Empty(t, got.Participants)
}

func TestReserve_FreeScrimSeatsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scrim := f.scrim(t, 4, 0)
	playerID := uuid.New()

	booking, err := f.svc.Reservation.Reserve(ctx, scrim.ID, playerID, player("free"))
	require.NoError(t, err)
	assert.False(t, booking.PaymentRequired)
	assert.True(t, booking.Seated())

	room, err := f.repo.Room.FindByScrimID(ctx, scrim.ID)
	require.NoError(t, err)
	require.NotNil(t, room)
	m := room.Member(playerID)
	require.NotNil(t, m)
	assert.Equal(t, entity.MemberStatusActive, m.Status)

	pending, err := f.repo.Payment.FindPendingByScrimPlayer(ctx, scrim.ID, playerID)
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Empty(t, f.gw.createdOrders())

	assert.Equal(t, 1, f.notifier.count(notify.BookingCreated))
	assert.Equal(t, 1, f.notifier.count(notify.MemberAdded))
}

func TestReserve_PaidScrimDoesNotSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scrim := f.scrim(t, 4, 9900)

	booking, err := f.svc.Reservation.Reserve(ctx, scrim.ID, uuid.New(), player("paid"))
	require.NoError(t, err)
	assert.True(t, booking.PaymentRequired)
	assert.False(t, booking.Seated())

	room, err := f.repo.Room.FindByScrimID(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Nil(t, room)
	assert.Zero(t, f.notifier.count(notify.MemberAdded))
}

func TestRemoveParticipant_RevokesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scrim := f.scrim(t, 2, 0)
	playerID := uuid.New()

	_, err := f.svc.Reservation.Reserve(ctx, scrim.ID, playerID, player("kicked"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Reservation.RemoveParticipant(ctx, scrim.ID, playerID, Actor{PlayerID: playerID, Role: utils.RolePlayer}))

	got, _ := f.repo.Scrim.FindByID(ctx, scrim.ID)
	assert.Empty(t, got.Participants)

	active, err := f.repo.Booking.FindActive(ctx, scrim.ID, playerID)
	require.NoError(t, err)
	assert.Nil(t, active)

	room, _ := f.repo.Room.FindByScrimID(ctx, scrim.ID)
	require.NotNil(t, room)
	assert.Equal(t, entity.MemberStatusRemoved, room.Member(playerID).Status)
	assert.Equal(t, 1, f.notifier.count(notify.MemberRemoved))

	err = f.svc.Reservation.RemoveParticipant(ctx, scrim.ID, playerID, Actor{PlayerID: uuid.New(), Role: utils.RoleAdmin})
	assert.ErrorIs(t, err, ErrBookingNotFound)

	// the freed slot can be booked again
	_, err = f.svc.Reservation.Reserve(ctx, scrim.ID, playerID, player("kicked"))
	require.NoError(t, err)
	room, _ = f.repo.Room.FindByScrimID(ctx, scrim.ID)
	assert.Equal(t, entity.MemberStatusActive, room.Member(playerID).Status)
}

func TestRemoveParticipant_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scrim := f.scrim(t, 4, 0)
	playerID := uuid.New()

	_, err := f.svc.Reservation.Reserve(ctx, scrim.ID, playerID, player("target"))
	require.NoError(t, err)

	denied := []Actor{
		{PlayerID: uuid.New(), Role: utils.RolePlayer},
		{PlayerID: uuid.New(), Role: utils.RoleOrganizer},
		{PlayerID: uuid.New(), OrganizationID: uuid.New(), Role: utils.RoleOrganizer},
	}
	for _, actor := range denied {
		err := f.svc.Reservation.RemoveParticipant(ctx, scrim.ID, playerID, actor)
		assert.ErrorIs(t, err, ErrForbidden)
	}

	got, _ := f.repo.Scrim.FindByID(ctx, scrim.ID)
	assert.Equal(t, []uuid.UUID{playerID}, got.Participants)
	assert.Zero(t, f.notifier.count(notify.MemberRemoved))

	organizer := Actor{PlayerID: uuid.New(), OrganizationID: scrim.OrganizationID, Role: utils.RoleOrganizer}
	require.NoError(t, f.svc.Reservation.RemoveParticipant(ctx, scrim.ID, playerID, organizer))

	got, _ = f.repo.Scrim.FindByID(ctx, scrim.ID)
	assert.Empty(t, got.Participants)
}

func TestActor_CanManage(t *testing.T) {
	scrim := &entity.Scrim{OrganizationID: uuid.New()}
	playerID := uuid.New()

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"admin", Actor{PlayerID: uuid.New(), Role: utils.RoleAdmin}, true},
		{"self", Actor{PlayerID: playerID, Role: utils.RolePlayer}, true},
		{"other player", Actor{PlayerID: uuid.New(), Role: utils.RolePlayer}, false},
		{"organizer of scrim", Actor{PlayerID: uuid.New(), OrganizationID: scrim.OrganizationID, Role: utils.RoleOrganizer}, true},
		{"organizer of other org", Actor{PlayerID: uuid.New(), OrganizationID: uuid.New(), Role: utils.RoleOrganizer}, false},
		{"organizer without org", Actor{PlayerID: uuid.New(), Role: utils.RoleOrganizer}, false},
		{"player claiming org", Actor{PlayerID: uuid.New(), OrganizationID: scrim.OrganizationID, Role: utils.RolePlayer}, false},
		{"anonymous", Actor{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.CanManage(scrim, playerID))
		})
	}
}
