package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	"github.com/polkiloo/resalebot/internal/domain/model"
	testhelpers "github.com/polkiloo/resalebot/internal/test"
)

func startDispatcher(t *testing.T, facade DispatchFacade, messenger Messenger, queue *Queue) *Dispatcher {
	t.Helper()
	d := NewDispatcher(facade, messenger, queue, time.Millisecond, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d.Start(ctx)
	t.Cleanup(d.Stop)
	return d
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDispatcherFansOutToActiveSellers(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Package: "3", Status: model.OrderStatusSubmitted, CreatedAt: time.Now()})
	for _, id := range []string{"100", "200", "300"} {
		facade.Sellers.Upsert(context.Background(), &model.Seller{ID: id, Active: true})
	}
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "400", Active: false})

	messenger := testhelpers.NewMessengerStub()
	queue := NewQueue(8)
	startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventNewOrder, OrderID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "fan-out", func() bool {
		records, _ := facade.Notifications.ListByOrder(context.Background(), 1)
		return len(records) == 3
	})

	for _, id := range []string{"100", "200", "300"} {
		if got := messenger.SentTo(id); len(got) != 1 {
			t.Fatalf("expected one delivery to seller %s, got %d", id, len(got))
		}
	}
	if got := messenger.SentTo("400"); len(got) != 0 {
		t.Fatal("inactive seller must not be notified")
	}
}

func TestDispatcherSkipsOrderClaimedWhileQueued(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Status: model.OrderStatusAccepted, ClaimedBy: "100"})
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "100", Active: true})

	messenger := testhelpers.NewMessengerStub()
	queue := NewQueue(8)
	d := startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventNewOrder, OrderID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, "queue drain", func() bool { return queue.Len() == 0 })
	d.Stop()

	if len(messenger.SentTo("100")) != 0 {
		t.Fatal("claimed order must not be announced")
	}
}

func TestDispatcherIsolatesRecipientFailures(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Status: model.OrderStatusSubmitted, CreatedAt: time.Now()})
	for _, id := range []string{"100", "200", "300"} {
		facade.Sellers.Upsert(context.Background(), &model.Seller{ID: id, Active: true})
	}

	messenger := testhelpers.NewMessengerStub()
	messenger.SendErr["200"] = errors.New("blocked by user")
	queue := NewQueue(8)
	startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventNewOrder, OrderID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "partial fan-out", func() bool {
		records, _ := facade.Notifications.ListByOrder(context.Background(), 1)
		return len(records) == 2
	})

	if len(messenger.SentTo("100")) != 1 || len(messenger.SentTo("300")) != 1 {
		t.Fatal("healthy recipients must still receive the announcement")
	}
	records, _ := facade.Notifications.ListByOrder(context.Background(), 1)
	for _, r := range records {
		if r.SellerID == "200" {
			t.Fatal("failed delivery must not be recorded")
		}
	}
}

func TestDispatcherPhotoFallsBackToText(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Payload: "qr-file-id", Status: model.OrderStatusSubmitted, CreatedAt: time.Now()})
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "100", Active: true})

	messenger := testhelpers.NewMessengerStub()
	messenger.SendPhotoFn = func(context.Context, string, string, string, [][]telegram.Button) (int64, error) {
		return 0, errors.New("bad file id")
	}
	queue := NewQueue(8)
	startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventNewOrder, OrderID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "text fallback", func() bool { return len(messenger.SentTo("100")) == 1 })
	if sent := messenger.SentTo("100"); sent[0].Photo != "" {
		t.Fatal("expected fallback to a plain text delivery")
	}
}

func TestDispatcherRetriesAfterRateLimit(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Status: model.OrderStatusSubmitted, CreatedAt: time.Now()})
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "100", Active: true})

	messenger := testhelpers.NewMessengerStub()
	var calls int32
	messenger.SendMessageFn = func(ctx context.Context, chatID, text string, buttons [][]telegram.Button) (int64, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, telegram.TooManyRequestsError{RetryAfter: 5 * time.Millisecond}
		}
		return 101, nil
	}
	queue := NewQueue(8)
	startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventNewOrder, OrderID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "rate limit retry", func() bool {
		records, _ := facade.Notifications.ListByOrder(context.Background(), 1)
		return len(records) == 1
	})
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected one retry after rate limit, got %d calls", got)
	}
}

func TestDispatcherEditsAllCopiesOnStatusChange(t *testing.T) {
	facade := testhelpers.NewDispatchFacadeStub()
	facade.Orders.Seed(&model.Order{ID: 1, Package: "6", Status: model.OrderStatusAccepted, ClaimedBy: "100"})
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "100", Active: true, Nickname: "Ann"})
	facade.Sellers.Upsert(context.Background(), &model.Seller{ID: "200", Active: true})
	facade.Notifications.Record(context.Background(), 1, "100", 11)
	facade.Notifications.Record(context.Background(), 1, "200", 12)

	messenger := testhelpers.NewMessengerStub()
	queue := NewQueue(8)
	startDispatcher(t, facade, messenger, queue)

	if err := queue.Enqueue(Event{Type: EventStatusChanged, OrderID: 1, Status: model.OrderStatusAccepted}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "message edits", func() bool { return len(messenger.EditedMessages()) == 2 })

	var ownerButtons, otherButtons [][]telegram.Button
	for _, e := range messenger.EditedMessages() {
		switch e.ChatID {
		case "100":
			ownerButtons = e.Buttons
		case "200":
			otherButtons = e.Buttons
		}
	}
	if len(ownerButtons) == 0 {
		t.Fatal("owner's copy must keep resolution buttons")
	}
	if len(otherButtons) != 0 {
		t.Fatal("non-owner copies must lose their buttons")
	}
}
