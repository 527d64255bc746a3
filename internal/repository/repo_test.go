package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
	"ticketing/internal/repository"
)

var (
	db        *sqlx.DB
	getDbOnce sync.Once
)

func getDb(t *testing.T) *sqlx.DB {
	t.Helper()

	if os.Getenv("POSTGRES_URL") == "" {
		t.Skip("POSTGRES_URL is not set")
	}

	getDbOnce.Do(func() {
		var err error
		db, err = sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		if err != nil {
			panic(err)
		}
		if err := repository.InitializeDBSchema(db); err != nil {
			panic(err)
		}
	})
	return db
}

func seedEvent(t *testing.T, repo *repository.EventsRepo, quantity int) (uuid.UUID, uuid.UUID) {
	t.Helper()

	start := time.Now().Add(100 * time.Hour).UTC()
	event := edomain.Event{
		Id:          uuid.New(),
		Name:        "Test Event",
		Venue:       "Test Venue",
		StartTime:   start,
		IsPublished: true,
	}
	tt := edomain.TicketType{
		Id:            uuid.New(),
		Name:          "GA",
		Price:         decimal.NewFromInt(500),
		Currency:      "INR",
		Quantity:      quantity,
		MaxPerUser:    quantity,
		StartSaleTime: time.Now().Add(-time.Hour).UTC(),
		IsActive:      true,
	}

	eventID, err := repo.CreateEvent(context.Background(), event, []edomain.TicketType{tt})
	require.NoError(t, err)
	require.Equal(t, event.Id, eventID)

	// The supplied ids must survive the insert; reservations run against them.
	created, err := repo.GetTicketType(context.Background(), tt.Id)
	require.NoError(t, err)
	require.Equal(t, quantity, created.Quantity)

	return eventID, tt.Id
}

func TestReserveTicketType_Concurrent_Integration(t *testing.T) {
	conn := getDb(t)
	repo := repository.NewEventsRepo(conn, trmsqlx.DefaultCtxGetter)
	ctx := context.Background()

	const capacity = 5
	const contenders = 20

	_, ticketTypeID := seedEvent(t, repo, capacity)

	var g errgroup.Group
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		g.Go(func() error {
			results <- repo.ReserveTicketType(ctx, ticketTypeID, 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	var won, lost int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, edomain.ErrInsufficientInventory)
		lost++
	}

	assert.Equal(t, capacity, won)
	assert.Equal(t, contenders-capacity, lost)

	tt, err := repo.GetTicketType(ctx, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, capacity, tt.QuantitySold)
	assert.Equal(t, 0, tt.Available())
}

func TestReleaseTicketType_FloorsAtZero_Integration(t *testing.T) {
	conn := getDb(t)
	repo := repository.NewEventsRepo(conn, trmsqlx.DefaultCtxGetter)
	ctx := context.Background()

	_, ticketTypeID := seedEvent(t, repo, 10)

	require.NoError(t, repo.ReserveTicketType(ctx, ticketTypeID, 3))
	require.NoError(t, repo.ReleaseTicketType(ctx, ticketTypeID, 5))

	tt, err := repo.GetTicketType(ctx, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 0, tt.QuantitySold)
}

func seedBooking(t *testing.T, conn *sqlx.DB, eventID uuid.UUID, providerOrderID string) uuid.UUID {
	t.Helper()

	repo := repository.NewBookingsRepo(conn, trmsqlx.DefaultCtxGetter)
	ctx := context.Background()

	bookingID, err := repo.Create(ctx, bdomain.Booking{
		Id:          uuid.New(),
		UserId:      uuid.New(),
		EventId:     eventID,
		TotalAmount: decimal.NewFromInt(1500),
		Currency:    "INR",
		Status:      bdomain.StatusPending,
		Customer:    bdomain.Customer{Name: "Asha", Email: "asha@example.com"},
	})
	require.NoError(t, err)

	if providerOrderID != "" {
		err = repo.SetPaymentInitiated(ctx, bookingID, "phonepe", providerOrderID, "PAYMENT_PENDING", nil)
		require.NoError(t, err)
	}

	return bookingID
}

func TestConfirmIfPending_SingleWinner_Integration(t *testing.T) {
	conn := getDb(t)
	eventsRepo := repository.NewEventsRepo(conn, trmsqlx.DefaultCtxGetter)
	bookingsRepo := repository.NewBookingsRepo(conn, trmsqlx.DefaultCtxGetter)
	ctx := context.Background()

	eventID, _ := seedEvent(t, eventsRepo, 10)
	orderID := "ORD-" + uuid.NewString()
	bookingID := seedBooking(t, conn, eventID, orderID)

	const contenders = 8
	var g errgroup.Group
	wins := make(chan bool, contenders)

	for i := 0; i < contenders; i++ {
		g.Go(func() error {
			won, err := bookingsRepo.ConfirmIfPending(ctx, bookingID, "PAYMENT_SUCCESS", time.Now().UTC())
			if err != nil {
				return err
			}
			wins <- won
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(wins)

	var winners int
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	booking, err := bookingsRepo.GetByProviderOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, bdomain.StatusConfirmed, booking.Status)
	require.NotNil(t, booking.Payment.PaidAt)
}

func TestMarkCancelled_RejectsTerminal_Integration(t *testing.T) {
	conn := getDb(t)
	eventsRepo := repository.NewEventsRepo(conn, trmsqlx.DefaultCtxGetter)
	bookingsRepo := repository.NewBookingsRepo(conn, trmsqlx.DefaultCtxGetter)
	ctx := context.Background()

	eventID, _ := seedEvent(t, eventsRepo, 10)
	bookingID := seedBooking(t, conn, eventID, "")

	cancelled, err := bookingsRepo.MarkCancelled(ctx, bookingID, "plans changed", decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.True(t, cancelled)

	// A second cancel finds no cancellable row.
	cancelled, err = bookingsRepo.MarkCancelled(ctx, bookingID, "again", decimal.Zero)
	require.NoError(t, err)
	assert.False(t, cancelled)

	booking, err := bookingsRepo.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bdomain.StatusCancelled, booking.Status)
	assert.Equal(t, "plans changed", booking.CancellationReason)
}
