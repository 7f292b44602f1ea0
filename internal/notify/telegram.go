package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"travelbooking/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const outboxSize = 256

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts booking lifecycle messages to admin chats.
type TelegramNotifier struct {
	sender  Sender
	chatIDs []int64
	outbox  chan string
	logger  *zerolog.Logger
}

func NewTelegramNotifier(token string, chatIDs []int64, debug bool, logger *zerolog.Logger) (*TelegramNotifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	botAPI.Debug = debug
	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(chatIDs)).Msg("Telegram notifier authorized")
	return newTelegramNotifier(botAPI, chatIDs, logger), nil
}

func newTelegramNotifier(sender Sender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		outbox:  make(chan string, outboxSize),
		logger:  logger,
	}
}

// NotifyAdmins sends text to every admin chat and joins the failures.
func (n *TelegramNotifier) NotifyAdmins(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := n.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe queues a message for each booking event. Delivery happens in Run.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll([]string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingRefunded,
		events.EventBookingStatusChanged,
	}, n.handle)
}

func (n *TelegramNotifier) handle(ev *events.Event) error {
	var p events.BookingEventPayload
	if err := ev.Decode(&p); err != nil {
		return err
	}
	select {
	case n.outbox <- FormatEvent(ev.Type, p):
		return nil
	default:
		return fmt.Errorf("notification outbox full, dropped %s for %s", ev.Type, p.BookingID)
	}
}

// Run delivers queued messages until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.outbox:
			if err := n.NotifyAdmins(ctx, text); err != nil {
				n.logger.Warn().Err(err).Msg("Telegram notification failed")
			}
		}
	}
}

var eventTitles = map[string]string{
	events.EventBookingCreated:       "New booking",
	events.EventBookingConfirmed:     "Booking confirmed",
	events.EventBookingCancelled:     "Booking cancelled",
	events.EventBookingRefunded:      "Booking refunded",
	events.EventBookingStatusChanged: "Booking status changed",
}

// FormatEvent renders a booking event as a plain text message.
func FormatEvent(eventType string, p events.BookingEventPayload) string {
	title, ok := eventTitles[eventType]
	if !ok {
		title = eventType
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Booking: %s\n", p.BookingID)
	if p.PackageTitle != "" {
		fmt.Fprintf(&b, "Package: %s\n", p.PackageTitle)
	} else {
		fmt.Fprintf(&b, "Package: %s\n", p.PackageID)
	}
	fmt.Fprintf(&b, "Date: %s\n", p.Date)
	if p.FromStatus != "" {
		fmt.Fprintf(&b, "Status: %s -> %s\n", p.FromStatus, p.Status)
	} else {
		fmt.Fprintf(&b, "Status: %s\n", p.Status)
	}
	fmt.Fprintf(&b, "Amount: %.2f", p.TotalAmount)
	if p.ChangedByRole != "" && p.ChangedByRole != "user" {
		fmt.Fprintf(&b, "\nBy: %s (%s)", p.ChangedByID, p.ChangedByRole)
	}
	return b.String()
}
