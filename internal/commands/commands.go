// Package commands parses chat commands and renders store results as
// user-facing text. It is deliberately thin: all real invariants live in
// the reminder package.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"remindbot/internal/clockz"
	"remindbot/internal/reminder"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Sender is the slice of the transport the router needs for replies.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) error
}

type Router struct {
	store *reminder.Store
	send  Sender
	log   logx.Logger
}

func NewRouter(store *reminder.Store, send Sender, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{store: store, send: send, log: log}
}

const usage = `Commands:
/remind YYYY-MM-DD HH:MM <text> - one-time reminder
/daily HH:MM <text> - every day
/weekly HH:MM <text> - every week from today
/monthly HH:MM <text> - every month from today
/list - show your reminders
/delete <id> - remove a reminder`

// Handle routes one incoming message. Non-commands are ignored.
func (r *Router) Handle(ctx context.Context, msg transport.Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	cmd, rest := splitCommand(text)
	owner := transport.OwnerFromChat(msg.ChatID)
	to := transport.ChatTarget{ChatID: msg.ChatID}

	var reply string
	switch cmd {
	case "/start", "/help":
		reply = usage
	case "/remind":
		reply = r.remind(ctx, owner, rest)
	case "/daily":
		reply = r.recurring(ctx, owner, reminder.CadenceDaily, rest)
	case "/weekly":
		reply = r.recurring(ctx, owner, reminder.CadenceWeekly, rest)
	case "/monthly":
		reply = r.recurring(ctx, owner, reminder.CadenceMonthly, rest)
	case "/list":
		reply = r.list(ctx, owner)
	case "/delete":
		reply = r.delete(ctx, owner, rest)
	default:
		return
	}

	if err := r.send.SendText(ctx, to, reply, &transport.SendOptions{DisablePreview: true}); err != nil {
		r.log.Warn("command reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

func (r *Router) remind(ctx context.Context, owner, rest string) string {
	parts := strings.SplitN(rest, " ", 3)
	if len(parts) < 3 {
		return "Usage: /remind YYYY-MM-DD HH:MM <text>"
	}
	dueAt := parts[0] + " " + parts[1]
	text := strings.TrimSpace(parts[2])
	if text == "" {
		return "Usage: /remind YYYY-MM-DD HH:MM <text>"
	}

	id, err := r.store.CreateOneTime(ctx, owner, text, dueAt)
	if err != nil {
		return r.renderError(owner, err)
	}
	return fmt.Sprintf("Reminder #%d set for %s.", id, dueAt)
}

func (r *Router) recurring(ctx context.Context, owner string, cadence reminder.Cadence, rest string) string {
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return fmt.Sprintf("Usage: /%s HH:MM <text>", cadence)
	}

	id, err := r.store.CreateRecurring(ctx, owner, strings.TrimSpace(parts[1]), string(cadence), parts[0])
	if err != nil {
		return r.renderError(owner, err)
	}
	return fmt.Sprintf("%s reminder #%d set at %s.", capitalize(string(cadence)), id, parts[0])
}

func (r *Router) list(ctx context.Context, owner string) string {
	ones, recs, err := r.store.List(ctx, owner)
	if err != nil {
		return r.renderError(owner, err)
	}
	if len(ones) == 0 && len(recs) == 0 {
		return "You have no reminders."
	}

	var b strings.Builder
	if len(ones) > 0 {
		b.WriteString("One-time:\n")
		for _, o := range ones {
			fmt.Fprintf(&b, "  #%d %s - %s\n", o.ID, clockz.Format(o.DueAt), o.Text)
		}
	}
	if len(recs) > 0 {
		b.WriteString("Recurring:\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "  #%d %s at %s (next %s) - %s\n",
				rec.ID, rec.Cadence, rec.NextDueAt.Format("15:04"), clockz.Format(rec.NextDueAt), rec.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) delete(ctx context.Context, owner, rest string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return "Usage: /delete <id> (see /list for ids)"
	}
	if err := r.store.Delete(ctx, owner, id); err != nil {
		return r.renderError(owner, err)
	}
	// Idempotent on purpose: deleting an unknown id still reads as done.
	return fmt.Sprintf("Reminder #%d deleted.", id)
}

func (r *Router) renderError(owner string, err error) string {
	var vErr *reminder.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error() + "\n" + usage
	}
	r.log.Error("command failed", logx.String("owner", owner), logx.Err(err))
	return "Something went wrong, please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitCommand separates "/cmd@botname args" into "/cmd" and "args".
func splitCommand(text string) (cmd, rest string) {
	cmd = text
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmd, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), rest
}
