package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/notify"
	testhelpers "github.com/polkiloo/resalebot/internal/test"
)

func newOrderFixture() (*OrderUseCase, *testhelpers.OrderRepositoryStub, *notify.Queue, *notify.Deduplicator) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := testhelpers.NewOrderRepositoryStub()
	queue := notify.NewQueue(16)
	dedup := notify.NewDeduplicator()
	uc := NewOrderUseCase(repo, queue, dedup, 2, logger)
	return uc, repo, queue, dedup
}

func TestSubmitValidatesPackage(t *testing.T) {
	uc, _, _, _ := newOrderFixture()

	if _, err := uc.Submit(context.Background(), "acc", "", "5"); !errors.Is(err, domainErrors.ErrInvalidPackage) {
		t.Fatalf("expected invalid package error, got %v", err)
	}

	order, err := uc.Submit(context.Background(), "acc", "qr", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusSubmitted {
		t.Fatalf("expected submitted status, got %q", order.Status)
	}
}

func TestClaimPublishesStatusChange(t *testing.T) {
	uc, repo, queue, _ := newOrderFixture()
	repo.Seed(&model.Order{ID: 1, Status: model.OrderStatusSubmitted})

	if err := uc.Claim(context.Background(), 1, "100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := <-queue.C()
	if event.Type != notify.EventStatusChanged || event.Status != model.OrderStatusAccepted {
		t.Fatalf("unexpected event %v", event)
	}
}

func TestClaimFailureDoesNotPublish(t *testing.T) {
	uc, repo, queue, _ := newOrderFixture()
	repo.Seed(&model.Order{ID: 1, Status: model.OrderStatusAccepted, ClaimedBy: "200"})

	if err := uc.Claim(context.Background(), 1, "100"); !errors.Is(err, domainErrors.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if queue.Len() != 0 {
		t.Fatal("losing claim must not publish a status change")
	}
}

func TestClaimEnforcesCap(t *testing.T) {
	uc, repo, _, _ := newOrderFixture()
	repo.Seed(&model.Order{ID: 1, Status: model.OrderStatusAccepted, ClaimedBy: "100"})
	repo.Seed(&model.Order{ID: 2, Status: model.OrderStatusAccepted, ClaimedBy: "100"})
	repo.Seed(&model.Order{ID: 3, Status: model.OrderStatusSubmitted})

	err := uc.Claim(context.Background(), 3, "100")
	var tooMany domainErrors.TooManyActiveError
	if !errors.As(err, &tooMany) {
		t.Fatalf("expected cap error, got %v", err)
	}
	if tooMany.Count != 2 || tooMany.Limit != 2 {
		t.Fatalf("unexpected cap payload %v", tooMany)
	}

	count, err := uc.ActiveClaimCount(context.Background(), "100")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 active claims, got %d (%v)", count, err)
	}
}

func TestResolveOutcomePublished(t *testing.T) {
	uc, repo, queue, _ := newOrderFixture()
	repo.Seed(&model.Order{ID: 1, Status: model.OrderStatusAccepted, ClaimedBy: "100"})

	if err := uc.Resolve(context.Background(), 1, "100", model.OrderStatusFailed, "Wrong password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, _ := repo.GetByID(context.Background(), 1)
	if order.Status != model.OrderStatusFailed || order.Remark != "Wrong password" {
		t.Fatalf("unexpected order state %+v", order)
	}
	event := <-queue.C()
	if event.Status != model.OrderStatusFailed {
		t.Fatalf("unexpected event %v", event)
	}
}

func TestResubmitClearsDedup(t *testing.T) {
	uc, repo, _, dedup := newOrderFixture()
	repo.Seed(&model.Order{ID: 1, Status: model.OrderStatusNeedNewInput, ClaimedBy: "100", Notified: true})
	dedup.TryClaim(1)

	if err := uc.Resubmit(context.Background(), 1, "new-qr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, _ := repo.GetByID(context.Background(), 1)
	if order.Status != model.OrderStatusSubmitted || order.Notified {
		t.Fatalf("expected reopened unnotified order, got %+v", order)
	}
	if !dedup.TryClaim(1) {
		t.Fatal("expected dedup entry released so the order is announced again")
	}
}

func TestNewOrderUseCaseDefaultLimit(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), notify.NewQueue(1), notify.NewDeduplicator(), 0, logger)
	if uc.ClaimLimit() != 2 {
		t.Fatalf("expected default claim limit of 2, got %d", uc.ClaimLimit())
	}
}
