package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/mauv0809/pickup-roster/internal/players"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Directory resolves player ids to display names and Slack users.
type Directory interface {
	GetPlayer(playerID string) (*players.Player, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack. Waitlist notices go to
// the player as a direct message when their Slack user is known, otherwise
// to the club channel with their name.
type Notifier struct {
	api       slackClient
	channelID string
	directory Directory
	metrics   metrics.Metrics
	location  *time.Location
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, directory Directory, metrics metrics.Metrics) *Notifier {
	return NewNotifierWithAPI(slack.New(token), channelID, directory, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, directory Directory, metrics metrics.Metrics) *Notifier {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		loc = time.UTC
	}
	return &Notifier{
		api:       api,
		channelID: channelID,
		directory: directory,
		metrics:   metrics,
		location:  loc,
	}
}

func (s *Notifier) sendMessage(target string, message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", target, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		target,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", target)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Notify tells a player about a waitlist transition.
func (s *Notifier) Notify(notice notifier.Notice, dryRun bool) error {
	target, name := s.channelID, notice.PlayerID
	if p := s.player(notice.PlayerID); p != nil {
		name = p.Name
		if p.SlackUserID != nil && *p.SlackUserID != "" {
			target = *p.SlackUserID
		}
	}
	msg, err := s.formatNotice(notice, name)
	if err != nil {
		return err
	}
	_, _, err = s.sendMessage(target, msg, dryRun)
	return err
}

// SendTeams announces generated teams in the club channel.
func (s *Notifier) SendTeams(m *match.Match, teams []match.Team, dryRun bool) error {
	msg := s.formatTeams(m.Title, teams)
	_, _, err := s.sendMessage(s.channelID, msg, dryRun)
	return err
}

// FormatSummaryResponse formats a match summary for a slash command response.
func (s *Notifier) FormatSummaryResponse(summary *match.Summary, teams []match.Team) (any, error) {
	return s.formatSummary(summary, teams), nil
}

func (s *Notifier) player(playerID string) *players.Player {
	if s.directory == nil {
		return nil
	}
	p, err := s.directory.GetPlayer(playerID)
	if err != nil {
		log.Debug("Player not in directory", "playerID", playerID, "error", err)
		return nil
	}
	return p
}

func (s *Notifier) displayName(playerID string) string {
	if p := s.player(playerID); p != nil && p.Name != "" {
		return p.Name
	}
	return playerID
}

func (s *Notifier) formatTime(ms int64) string {
	return time.UnixMilli(ms).In(s.location).Format("Monday 02 Jan, 15:04")
}

func matchLabel(title, matchID string) string {
	if title != "" {
		return title
	}
	return "match " + matchID
}

func positionLabel(p match.Position) string {
	if p == match.PositionGoalkeeper {
		return "goalkeeper"
	}
	return "field"
}

func (s *Notifier) formatNotice(notice notifier.Notice, name string) (slack.Message, error) {
	label := matchLabel(notice.MatchTitle, notice.MatchID)

	var header, body string
	switch notice.Kind {
	case notifier.NoticeSlotOffered:
		header = ":stopwatch: A spot opened up!"
		body = fmt.Sprintf("%s, a %s spot in *%s* is yours if you accept before %s.",
			name, positionLabel(notice.Position), label, s.formatTime(notice.Deadline))
	case notifier.NoticePromoted:
		header = ":white_check_mark: You're in!"
		body = fmt.Sprintf("%s moved off the waitlist and is confirmed as %s for *%s*.",
			name, positionLabel(notice.Position), label)
	case notifier.NoticeExpired:
		header = ":hourglass: Offer expired"
		body = fmt.Sprintf("%s, your spot offer for *%s* expired and has passed to the next player on the waitlist.", name, label)
	default:
		return slack.Message{}, fmt.Errorf("unknown notice kind %q", notice.Kind)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", header, true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", body, false, false), nil, nil),
	}
	if notice.Kind == notifier.NoticeSlotOffered && notice.QueuePosition > 0 {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Waitlist position %d. If you do not answer, the spot goes to the next player.", notice.QueuePosition), false, false)))
	}
	return slack.NewBlockMessage(blocks...), nil
}

func (s *Notifier) teamFields(teams []match.Team) []*slack.TextBlockObject {
	fields := make([]*slack.TextBlockObject, 0, len(teams))
	for _, team := range teams {
		lines := []string{fmt.Sprintf("*%s*", team.Name)}
		for _, id := range team.PlayerIDs {
			lines = append(lines, "• "+s.displayName(id))
		}
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", strings.Join(lines, "\n"), false, false))
	}
	return fields
}

func (s *Notifier) formatTeams(title string, teams []match.Team) slack.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", fmt.Sprintf(":soccer: Teams for %s", title), true, false)),
	}
	// Section blocks take at most 10 fields.
	fields := s.teamFields(teams)
	for len(fields) > 0 {
		n := min(len(fields), 10)
		blocks = append(blocks, slack.NewSectionBlock(nil, fields[:n], nil))
		fields = fields[n:]
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatSummary(summary *match.Summary, teams []match.Team) slack.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", matchLabel(summary.Title, summary.MatchID), true, false)),
	}

	details := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Status*\n%s", summary.Status), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Field*\n%d/%d", summary.FieldCount, summary.FieldCapacity), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Goalkeepers*\n%d/%d", summary.GoalkeeperCount, summary.GoalkeeperCapacity), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Waitlist*\n%d", summary.WaitingCount), false, false),
	}
	if summary.StartsAt != 0 {
		details = append(details, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Kick-off*\n%s", s.formatTime(summary.StartsAt)), false, false))
	}
	blocks = append(blocks, slack.NewSectionBlock(nil, details, nil))

	if len(teams) > 0 {
		blocks = append(blocks, slack.NewDividerBlock())
		fields := s.teamFields(teams)
		if len(fields) > 10 {
			fields = fields[:10]
		}
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}
	return slack.NewBlockMessage(blocks...)
}
