package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storage-watch/internal/inventory"
)

// Embed colours.
const (
	ColorBlue   = 0x0000FF
	ColorRed    = 0xFF0000
	ColorGreen  = 0x00FF00
	ColorOrange = 0xFFA500
)

// Discord rejects embed field values longer than this.
const maxFieldValue = 1024

// MentionEveryone pings the whole channel.
const MentionEveryone = "@everyone"

// Field is one titled block of an embed.
type Field struct {
	Name  string
	Value string
}

// Message is a rendered notification, independent of the sink.
type Message struct {
	// Content is sent outside the embed; mentions live here.
	Content     string
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Markdown renders the message as chat markdown lines.
func (m Message) Markdown() string {
	var b strings.Builder
	if m.Content != "" {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	if m.Title != "" {
		fmt.Fprintf(&b, "**%s**\n", strings.ReplaceAll(m.Title, "**", ""))
	}
	if m.Description != "" {
		b.WriteString(m.Description)
		b.WriteString("\n")
	}
	for _, f := range m.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Plain renders the message without markup or mentions.
func (m Message) Plain() string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString(stripMarkup(m.Title))
		b.WriteString("\n")
	}
	if m.Description != "" {
		b.WriteString(stripMarkup(m.Description))
		b.WriteString("\n")
	}
	for _, f := range m.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, stripMarkup(f.Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(strings.TrimPrefix(s, "## "))
}

// Renderer turns inventory events into messages.
type Renderer struct {
	MentionRoleID string
}

func (r Renderer) roleMention() string {
	if r.MentionRoleID == "" {
		return ""
	}
	return "<@&" + r.MentionRoleID + ">"
}

// Render builds the message for one event.
func (r Renderer) Render(ev inventory.Event) Message {
	weight := Field{Name: "Total Storage weight", Value: weightOf(ev.TotalWeight, ev.MaxWeight)}

	switch ev.Kind {
	case inventory.EventMonitoringStarted:
		return Message{
			Content: r.roleMention(),
			Title:   "Monitoring Started",
			Color:   ColorBlue,
			Fields:  []Field{weight, {Name: "Info", Value: ev.Info}},
		}
	case inventory.EventThresholdCrossed:
		return Message{
			Content:     MentionEveryone,
			Title:       "Storage Alert",
			Description: fmt.Sprintf("## Storage nearly full! %s KG left until user cannot add more items!", ev.Remaining.String()),
			Color:       ColorRed,
		}
	case inventory.EventItemAdded, inventory.EventItemRemoved:
		direction, color := "added to", ColorGreen
		if ev.Kind == inventory.EventItemRemoved {
			direction, color = "removed from", ColorOrange
		}
		return Message{
			Content: r.roleMention(),
			Title:   fmt.Sprintf("Item **%s** storage", direction),
			Color:   color,
			Fields: []Field{weight, {
				Name:  "Info",
				Value: fmt.Sprintf("%s: %sx (%sx -> **%sx**)", ev.Item, ev.Delta.String(), ev.Previous.String(), ev.Current.String()),
			}},
		}
	case inventory.EventItemVanished:
		return Message{
			Content: r.roleMention(),
			Title:   "Last Item **removed from** storage",
			Color:   ColorOrange,
			Fields:  []Field{weight, {Name: "Info", Value: ev.Item}},
		}
	}
	return Message{Title: string(ev.Kind), Fields: []Field{weight}}
}

// StartedInfo formats the info line of the monitoring_started message.
func StartedInfo(devMode bool, interval time.Duration) string {
	mode := "False"
	if devMode {
		mode = "True"
	}
	return fmt.Sprintf("DEV MODE: %s - API Request Time: %d seconds", mode, int64(interval/time.Second))
}

// RenderInventory builds the reply of the info command. status describes
// the monitor and is added as its own field when non-empty.
func RenderInventory(snap inventory.Snapshot, maxWeight decimal.Decimal, status string) Message {
	lines := make([]string, 0, snap.Len())
	for _, item := range snap.Sorted() {
		lines = append(lines, fmt.Sprintf("%s - %sx - %s KG - %s KG",
			item.Name, item.Amount.String(), item.SingleWeight.String(), item.TotalWeight.String()))
	}
	listing := "No items in storage"
	if len(lines) > 0 {
		listing = joinLimited(lines, maxFieldValue)
	}

	msg := Message{
		Title: "Storage Information",
		Color: ColorGreen,
		Fields: []Field{
			{Name: "Storage weight", Value: weightOf(snap.TotalWeight, maxWeight)},
			{Name: "Current items in storage", Value: listing},
		},
	}
	if status != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Monitor", Value: status})
	}
	return msg
}

func weightOf(total, max decimal.Decimal) string {
	return fmt.Sprintf("%s/%s KG", total.String(), max.String())
}

// joinLimited joins lines with newlines, dropping trailing lines that would
// push the result past limit and noting how many were left out.
func joinLimited(lines []string, limit int) string {
	var b strings.Builder
	for i, line := range lines {
		more := fmt.Sprintf("… and %d more", len(lines)-i)
		need := len(line)
		if i > 0 {
			need++
		}
		if b.Len()+need > limit || (i < len(lines)-1 && b.Len()+need+1+len(more) > limit) {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(more)
			return b.String()
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}
