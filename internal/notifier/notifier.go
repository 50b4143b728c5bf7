package notifier

import (
	"context"

	"github.com/mauv0809/pickup-roster/internal/match"
)

// Notifier delivers roster messages to players and to the club channel.
type Notifier interface {
	Notify(notice Notice, dryRun bool) error
	SendTeams(m *match.Match, teams []match.Team, dryRun bool) error
	FormatSummaryResponse(summary *match.Summary, teams []match.Team) (any, error)
}

// NoticeKind names the waitlist transition a notice reports.
type NoticeKind string

const (
	NoticeSlotOffered NoticeKind = "slot-offered"
	NoticePromoted    NoticeKind = "promoted"
	NoticeExpired     NoticeKind = "expired"
)

// Notice is addressed to one player. Deadline is unix millis and only set for
// NoticeSlotOffered.
type Notice struct {
	Kind          NoticeKind     `json:"kind" msgpack:"kind"`
	MatchID       string         `json:"match_id" msgpack:"match_id"`
	MatchTitle    string         `json:"match_title" msgpack:"match_title"`
	PlayerID      string         `json:"player_id" msgpack:"player_id"`
	Position      match.Position `json:"position" msgpack:"position"`
	QueuePosition int            `json:"queue_position" msgpack:"queue_position"`
	Deadline      int64          `json:"deadline,omitempty" msgpack:"deadline"`
	DryRun        bool           `json:"dry_run,omitempty" msgpack:"dry_run"`
}

// NewNotice builds a notice for a waitlist entry of m.
func NewNotice(kind NoticeKind, m *match.Match, entry *match.WaitlistEntry) Notice {
	n := Notice{
		Kind:          kind,
		MatchID:       m.ID,
		MatchTitle:    m.Title,
		PlayerID:      entry.PlayerID,
		Position:      entry.Position,
		QueuePosition: entry.QueuePosition,
	}
	if entry.ResponseDeadline != nil {
		n.Deadline = match.Millis(*entry.ResponseDeadline)
	}
	return n
}

type contextKey string

const dryRunKey contextKey = "dryRun"

// WithDryRun marks ctx so dispatchers only log what they would send.
func WithDryRun(ctx context.Context, dryRun bool) context.Context {
	return context.WithValue(ctx, dryRunKey, dryRun)
}

func IsDryRun(ctx context.Context) bool {
	dryRun, ok := ctx.Value(dryRunKey).(bool)
	return ok && dryRun
}

// Direct hands notices straight to a Notifier in-process.
type Direct struct {
	notifier Notifier
	dryRun   bool
}

func NewDirectDispatcher(n Notifier, dryRun bool) *Direct {
	return &Direct{notifier: n, dryRun: dryRun}
}

func (d *Direct) Dispatch(ctx context.Context, notice Notice) error {
	return d.notifier.Notify(notice, d.dryRun || notice.DryRun || IsDryRun(ctx))
}
