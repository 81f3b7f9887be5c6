package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	kit "taigabot/internal/transport"
	"taigabot/pkg/tgui"
)

// DeliveryChannel tags notifications that originate from Taiga events.
const DeliveryChannel = "taiga"

var ErrBadAddress = errors.New("address is not a telegram chat id")

// Deliver sends HTML text to the chat named by address. With the pipeline
// enabled the message is queued and the call returns once it is accepted;
// with it disabled the message is sent synchronously with retries.
func (s *Service) Deliver(ctx context.Context, address, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(address), 10, 64)
	if err != nil || chatID == 0 {
		return fmt.Errorf("%w: %q", ErrBadAddress, address)
	}
	n := kit.Notification{
		Channel: DeliveryChannel,
		Target:  kit.ChatTarget{ChatID: chatID},
		Text:    text,
		Options: &kit.SendOptions{ParseMode: tgui.ParseMode, DisablePreview: true},
	}

	err = s.Notify(ctx, n)
	if !errors.Is(err, ErrDisabled) {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.sendWithRetry(sctx, job{n: n})
}
