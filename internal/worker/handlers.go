package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

// RefundHandler issues the provider refund queued by a cancellation.
func RefundHandler(gateway domain.PaymentGateway, logger *zerolog.Logger) Handler {
	return func(ctx context.Context, task *models.Task) error {
		var p models.RefundTaskPayload
		if err := json.Unmarshal([]byte(task.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode refund payload: %v", ErrPermanent, err)
		}
		if p.PaymentID == "" {
			return fmt.Errorf("%w: refund task without payment id", ErrPermanent)
		}

		refund, err := gateway.Refund(ctx, models.RefundRequest{
			PaymentID: p.PaymentID,
			BookingID: task.BookingID,
			Amount:    p.Amount,
			Reason:    p.Reason,
		})
		if err != nil {
			return err
		}
		logger.Info().Str("booking_id", task.BookingID).Str("refund_id", refund.ID).Float64("amount", refund.Amount).
			Msg("Refund for cancelled booking issued")
		return nil
	}
}

// ReleaseHandler retries an inventory release that failed inline.
func ReleaseHandler(ledger domain.InventoryLedger) Handler {
	return func(ctx context.Context, task *models.Task) error {
		var p models.ReleaseTaskPayload
		if err := json.Unmarshal([]byte(task.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode release payload: %v", ErrPermanent, err)
		}
		if p.Count <= 0 {
			p.Count = 1
		}
		_, err := ledger.Release(ctx, p.PackageID, p.Count)
		if errors.Is(err, domain.ErrNotFound) {
			// package deleted since; nothing to give back
			return nil
		}
		return err
	}
}

// SheetsSyncHandler mirrors the current state of a booking to the spreadsheet.
func SheetsSyncHandler(bookings domain.BookingStore, sheets domain.SheetsWriter) Handler {
	return func(ctx context.Context, task *models.Task) error {
		booking, err := bookings.GetBooking(ctx, task.BookingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %v", ErrPermanent, err)
			}
			return err
		}
		return sheets.UpsertBooking(ctx, booking)
	}
}
