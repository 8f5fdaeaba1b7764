package email

import (
	"fmt"
	"html"
	"strings"
)

// Notification email bodies. Kept as plain string builders; the dashboard
// link is the only call to action, so a template engine buys nothing here.

func HotLeadSubject(name string) string {
	return fmt.Sprintf("Hot lead: %s", name)
}

func WarmLeadSubject(name string) string {
	return fmt.Sprintf("New lead: %s", name)
}

func EscalationSubject() string {
	return "A customer is waiting for a human reply"
}

func AppointmentSubject(customerName string) string {
	return fmt.Sprintf("New appointment booked by %s", customerName)
}

type LeadEmailData struct {
	Name      string
	Email     string
	Phone     string
	Score     int
	Quality   string
	Reasoning []string
}

func LeadBody(d LeadEmailData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New %s lead captured</h2>", html.EscapeString(d.Quality))
	fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(d.Name))
	if d.Email != "" {
		fmt.Fprintf(&b, "<p>Email: %s</p>", html.EscapeString(d.Email))
	}
	if d.Phone != "" {
		fmt.Fprintf(&b, "<p>Phone: %s</p>", html.EscapeString(d.Phone))
	}
	fmt.Fprintf(&b, "<p>Score: %d/100</p>", d.Score)
	if len(d.Reasoning) > 0 {
		b.WriteString("<ul>")
		for _, r := range d.Reasoning {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(r))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

type EscalationEmailData struct {
	Reason      string
	LastMessage string
	Channel     string
}

func EscalationBody(d EscalationEmailData) string {
	var b strings.Builder
	b.WriteString("<h2>Conversation escalated to your team</h2>")
	fmt.Fprintf(&b, "<p>Channel: %s</p>", html.EscapeString(d.Channel))
	fmt.Fprintf(&b, "<p>Reason: %s</p>", html.EscapeString(d.Reason))
	if d.LastMessage != "" {
		fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(d.LastMessage))
	}
	b.WriteString("<p>Open your dashboard to reply.</p>")
	return b.String()
}

type AppointmentEmailData struct {
	CustomerName  string
	CustomerEmail string
	ServiceType   string
	ScheduledAt   string
	MeetingLink   string
}

func AppointmentBody(d AppointmentEmailData) string {
	var b strings.Builder
	b.WriteString("<h2>New appointment</h2>")
	fmt.Fprintf(&b, "<p><strong>%s</strong> (%s)</p>",
		html.EscapeString(d.CustomerName), html.EscapeString(d.CustomerEmail))
	fmt.Fprintf(&b, "<p>Service: %s</p>", html.EscapeString(d.ServiceType))
	fmt.Fprintf(&b, "<p>When: %s</p>", html.EscapeString(d.ScheduledAt))
	if d.MeetingLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Join meeting</a></p>`, html.EscapeString(d.MeetingLink))
	}
	return b.String()
}

type ReminderEmailData struct {
	CustomerName string
	ServiceType  string
	ScheduledAt  string
	MeetingLink  string
}

func ReminderSubject(serviceType string) string {
	return fmt.Sprintf("Reminder: upcoming %s appointment", serviceType)
}

func ReminderBody(d ReminderEmailData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Upcoming appointment with %s</h2>", html.EscapeString(d.CustomerName))
	fmt.Fprintf(&b, "<p>Service: %s</p>", html.EscapeString(d.ServiceType))
	fmt.Fprintf(&b, "<p>When: %s</p>", html.EscapeString(d.ScheduledAt))
	if d.MeetingLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Join meeting</a></p>`, html.EscapeString(d.MeetingLink))
	}
	return b.String()
}
