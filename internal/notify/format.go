package notify

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"civicpulse.app/sla/internal/model"
)

var kindHeadings = map[model.NotificationKind]string{
	model.NotificationWarning:         ":warning: SLA warning",
	model.NotificationCriticalWarning: ":rotating_light: SLA critical",
	model.NotificationEscalation:      ":fire: SLA breached, issue escalated",
	model.NotificationReminder:        ":alarm_clock: SLA still breached",
}

// Summary is the one-line plain text form used for fallbacks and logs.
func Summary(n model.Notification) string {
	title := n.Metadata.Title
	if title == "" {
		title = "issue " + n.IssueID
	}
	if n.Metadata.HoursOverdue > 0 {
		return fmt.Sprintf("[%s] %s is %.1fh overdue (to %s)", n.Kind, title, n.Metadata.HoursOverdue, n.Recipient)
	}
	return fmt.Sprintf("[%s] %s is due in %.1fh (to %s)", n.Kind, title, n.Metadata.HoursRemaining, n.Recipient)
}

// Blocks renders a notification as Slack blocks.
func Blocks(n model.Notification) []slack.Block {
	heading, ok := kindHeadings[n.Kind]
	if !ok {
		heading = string(n.Kind)
	}

	area := n.Metadata.AreaName
	if area == "" {
		area = n.Metadata.AreaID
	}

	fields := []*slack.TextBlockObject{
		markdown(fmt.Sprintf("*Issue*\n%s", n.IssueID)),
		markdown(fmt.Sprintf("*Area*\n%s", area)),
		markdown(fmt.Sprintf("*Category*\n%s", humanize(string(n.Metadata.Category)))),
		markdown(fmt.Sprintf("*Priority*\n%s", n.Metadata.Priority)),
		markdown(fmt.Sprintf("*Deadline*\n%s", n.Metadata.Deadline.UTC().Format("Jan 2 15:04 MST"))),
	}
	if n.Metadata.HoursOverdue > 0 {
		fields = append(fields, markdown(fmt.Sprintf("*Overdue*\n%.1fh", n.Metadata.HoursOverdue)))
	} else {
		fields = append(fields, markdown(fmt.Sprintf("*Remaining*\n%.1fh", n.Metadata.HoursRemaining)))
	}

	title := n.Metadata.Title
	if title == "" {
		title = "Issue " + n.IssueID
	}

	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, heading, true, false)),
		slack.NewSectionBlock(markdown("*"+title+"*"), fields, nil),
		slack.NewContextBlock("",
			markdown(fmt.Sprintf("For *%s* · notification %s", n.Recipient, n.ID))),
	}
}

func alertBlocks(alert model.OperatorAlert) []slack.Block {
	text := fmt.Sprintf("*%s*: %s", alert.Kind, alert.Message)
	if alert.IssueID != "" {
		text += fmt.Sprintf("\nIssue: %s", alert.IssueID)
	}
	if alert.ConsecutiveFailures > 0 {
		text += fmt.Sprintf("\nConsecutive failures: %d", alert.ConsecutiveFailures)
	}
	blocks := []slack.Block{slack.NewSectionBlock(markdown(text), nil, nil)}
	if alert.Error != "" {
		blocks = append(blocks, slack.NewContextBlock("", markdown("```"+alert.Error+"```")))
	}
	return blocks
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
