package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"botcore/internal/exec"
)

// StdioSender writes outbound replies as newline-delimited JSON to w,
// the harness transport used by `cmd/bot serve` in place of a real
// WhatsApp gateway connection (spec §13 Non-goals: no bundled
// transport/gateway client). Each call carries the per-request
// timeout the outbound side is contracted to honor (spec §5).
type StdioSender struct {
	w       io.Writer
	timeout time.Duration
}

// NewStdioSender builds a sender bound to w with the given per-call
// outbound timeout (spec §6 "Configuration / tunables": default 30s).
func NewStdioSender(w io.Writer, timeout time.Duration) *StdioSender {
	return &StdioSender{w: w, timeout: timeout}
}

var _ exec.Sender = (*StdioSender)(nil)

type outboundLine struct {
	ChatID           string `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
}

func (s *StdioSender) write(ctx context.Context, line outboundLine) error {
	done := make(chan error, 1)
	go func() {
		data, err := json.Marshal(line)
		if err != nil {
			done <- err
			return
		}
		data = append(data, '\n')
		_, err = s.w.Write(data)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("gateway: writing outbound line: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gateway: outbound send timed out: %w", ctx.Err())
	}
}

// SendMessage sends an unprompted message to chatID.
func (s *StdioSender) SendMessage(chatID, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.write(ctx, outboundLine{ChatID: chatID, Text: text})
}

// SendReply replies to a specific message.
func (s *StdioSender) SendReply(chatID, text, replyToMessageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.write(ctx, outboundLine{ChatID: chatID, Text: text, ReplyToMessageID: replyToMessageID})
}
