package alerting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storage-watch/internal/inventory"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRenderThresholdCrossed(t *testing.T) {
	r := Renderer{MentionRoleID: "42"}
	msg := r.Render(inventory.Event{
		Kind:        inventory.EventThresholdCrossed,
		TotalWeight: dec(160),
		MaxWeight:   dec(220),
		Remaining:   dec(60),
	})

	if msg.Content != MentionEveryone {
		t.Fatalf("threshold alert should mention everyone, got %q", msg.Content)
	}
	if msg.Title != "Storage Alert" || msg.Color != ColorRed {
		t.Fatalf("unexpected title/color %q %#x", msg.Title, msg.Color)
	}
	want := "## Storage nearly full! 60 KG left until user cannot add more items!"
	if msg.Description != want {
		t.Fatalf("description = %q, want %q", msg.Description, want)
	}
}

func TestRenderItemChanges(t *testing.T) {
	r := Renderer{MentionRoleID: "42"}

	added := r.Render(inventory.Event{
		Kind: inventory.EventItemAdded, Item: "Iron",
		Delta: dec(2), Previous: dec(3), Current: dec(5),
		TotalWeight: dec(100), MaxWeight: dec(1850),
	})
	if added.Content != "<@&42>" {
		t.Fatalf("expected role mention, got %q", added.Content)
	}
	if added.Title != "Item **added to** storage" || added.Color != ColorGreen {
		t.Fatalf("unexpected added rendering %+v", added)
	}
	if added.Fields[0].Name != "Total Storage weight" || added.Fields[0].Value != "100/1850 KG" {
		t.Fatalf("unexpected weight field %+v", added.Fields[0])
	}
	if added.Fields[1].Value != "Iron: 2x (3x -> **5x**)" {
		t.Fatalf("unexpected info field %q", added.Fields[1].Value)
	}

	removed := r.Render(inventory.Event{
		Kind: inventory.EventItemRemoved, Item: "A",
		Delta: dec(2), Previous: dec(5), Current: dec(3),
		TotalWeight: dec(160), MaxWeight: dec(220),
	})
	if removed.Title != "Item **removed from** storage" || removed.Color != ColorOrange {
		t.Fatalf("unexpected removed rendering %+v", removed)
	}
	if removed.Fields[1].Value != "A: 2x (5x -> **3x**)" {
		t.Fatalf("unexpected info field %q", removed.Fields[1].Value)
	}

	vanished := r.Render(inventory.Event{Kind: inventory.EventItemVanished, Item: "B", TotalWeight: dec(10), MaxWeight: dec(20)})
	if vanished.Title != "Last Item **removed from** storage" || vanished.Fields[1].Value != "B" {
		t.Fatalf("unexpected vanished rendering %+v", vanished)
	}
}

func TestRenderWithoutRoleHasNoMention(t *testing.T) {
	msg := Renderer{}.Render(inventory.Event{Kind: inventory.EventItemVanished, Item: "B"})
	if msg.Content != "" {
		t.Fatalf("expected no mention, got %q", msg.Content)
	}
}

func TestStartedInfo(t *testing.T) {
	if got := StartedInfo(false, 600*time.Second); got != "DEV MODE: False - API Request Time: 600 seconds" {
		t.Fatalf("unexpected info %q", got)
	}
	if got := StartedInfo(true, time.Second); got != "DEV MODE: True - API Request Time: 1 seconds" {
		t.Fatalf("unexpected info %q", got)
	}
}

func TestRenderInventory(t *testing.T) {
	snap := inventory.Empty()
	snap.TotalWeight = decimal.RequireFromString("12.5")
	snap.Items["Wood"] = inventory.Item{Name: "Wood", Amount: dec(5), SingleWeight: dec(1), TotalWeight: dec(5)}
	snap.Items["Iron"] = inventory.Item{Name: "Iron", Amount: dec(3), SingleWeight: decimal.RequireFromString("2.5"), TotalWeight: decimal.RequireFromString("7.5")}

	msg := RenderInventory(snap, dec(1850), "running")
	if msg.Fields[0].Value != "12.5/1850 KG" {
		t.Fatalf("unexpected weight %q", msg.Fields[0].Value)
	}
	want := "Iron - 3x - 2.5 KG - 7.5 KG\nWood - 5x - 1 KG - 5 KG"
	if msg.Fields[1].Value != want {
		t.Fatalf("listing = %q, want %q", msg.Fields[1].Value, want)
	}
	if len(msg.Fields) != 3 || msg.Fields[2].Value != "running" {
		t.Fatalf("expected monitor field, got %+v", msg.Fields)
	}

	empty := RenderInventory(inventory.Empty(), dec(1850), "")
	if empty.Fields[1].Value == "" || len(empty.Fields) != 2 {
		t.Fatalf("empty listing must not be blank: %+v", empty.Fields)
	}
}

func TestJoinLimitedTruncates(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = strings.Repeat("x", 30)
	}
	out := joinLimited(lines, maxFieldValue)
	if len(out) > maxFieldValue {
		t.Fatalf("output exceeds limit: %d", len(out))
	}
	if !strings.Contains(out, "more") {
		t.Fatalf("truncated output should note the remainder: %q", out[len(out)-40:])
	}

	short := joinLimited([]string{"a", "b"}, maxFieldValue)
	if short != "a\nb" {
		t.Fatalf("short input should be untouched, got %q", short)
	}
}

func TestMarkdownAndPlain(t *testing.T) {
	msg := Message{
		Content:     "<@&1>",
		Title:       "Item **added to** storage",
		Description: "## Storage nearly full!",
		Fields:      []Field{{Name: "Info", Value: "A: 1x (0x -> **1x**)"}},
	}
	md := msg.Markdown()
	if !strings.HasPrefix(md, "<@&1>\n**Item added to storage**") {
		t.Fatalf("unexpected markdown %q", md)
	}
	plain := msg.Plain()
	if strings.Contains(plain, "**") || strings.Contains(plain, "<@&") || strings.Contains(plain, "## ") {
		t.Fatalf("plain text still has markup: %q", plain)
	}
}
