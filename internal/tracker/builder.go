package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"floatwatch/internal/csfloat"
)

const (
	SteamImageCDN  = "https://steamcommunity-a.akamaihd.net/economy/image/"
	maxStickers    = 3
	maxNoteRunes   = 100
	footerTemplate = "CSFloat • ID: %s"
)

// Divergence markers.
const (
	MarkerUp      = "📈"
	MarkerDown    = "📉"
	MarkerNeutral = "⚖️"
)

type PayloadField struct {
	Icon   string
	Name   string
	Value  string
	Inline bool
}

// NotificationPayload is the platform-neutral form of one listing alert.
type NotificationPayload struct {
	Title     string
	URL       string
	Timestamp time.Time
	Fields    []PayloadField
	Thumbnail string
	Footer    string
}

// Field looks a field up by name.
func (p NotificationPayload) Field(name string) (PayloadField, bool) {
	return lo.Find(p.Fields, func(f PayloadField) bool { return f.Name == name })
}

func (p *NotificationPayload) add(icon, name, value string, inline bool) {
	p.Fields = append(p.Fields, PayloadField{Icon: icon, Name: name, Value: value, Inline: inline})
}

func cents(v int64) decimal.Decimal { return decimal.New(v, -2) }

func dollars(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

// BuildNotification renders a listing. It is pure.
func BuildNotification(l csfloat.Listing) NotificationPayload {
	it := l.Item
	p := NotificationPayload{
		Title:     it.MarketHashName,
		URL:       csfloat.ItemURLPrefix + l.ID,
		Timestamp: l.CreatedAt,
		Footer:    fmt.Sprintf(footerTemplate, l.ID),
		Thumbnail: thumbnailURL(it.IconURL),
	}

	price := cents(l.Price)
	p.add("💰", "Price", dollars(price), true)
	p.add("🎯", "Float", strconv.FormatFloat(it.FloatValue, 'f', 6, 64), true)
	p.add("🎨", "Paint Seed", optInt(it.PaintSeed, "N/A"), true)
	p.add("👕", "Condition", lo.Ternary(it.WearName != "", it.WearName, "Unknown"), true)

	var special []string
	if it.IsStatTrak {
		special = append(special, "StatTrak™")
	}
	if it.IsSouvenir {
		special = append(special, "Souvenir")
	}
	if len(special) > 0 {
		p.add("✨", "Special", strings.Join(special, " | "), true)
	} else {
		p.add("📊", "Rarity", "Grade "+optInt(it.Rarity, "Unknown"), true)
	}

	p.add("👤", "Seller", sellerName(l.Seller), true)

	if ref := l.Reference; ref != nil && ref.PredictedPrice > 0 {
		predicted := cents(ref.PredictedPrice)
		p.add("📈", "Predicted", dollars(predicted), true)

		display, pred := float64(l.Price)/100, float64(ref.PredictedPrice)/100
		icon, text := divergence(display, pred)
		p.add(icon, "Divergence", text, true)

		if ref.BasePrice > 0 && display < pred {
			p.add("💸", "Discount", percent((pred-display)/pred*100), true)
		}
	}

	if n := len(it.Stickers); n > 0 {
		names := lo.Map(it.Stickers[:min(n, maxStickers)], func(s csfloat.Sticker, _ int) string { return s.Name })
		text := strings.Join(names, "\n")
		if n > maxStickers {
			text += fmt.Sprintf("\n... and %d more", n-maxStickers)
		}
		p.add("🏷️", "Stickers", text, false)
	}

	if l.Watchers > 0 {
		p.add("👀", "Watchers", strconv.Itoa(l.Watchers), true)
	}

	if l.Description != "" {
		p.add("📝", "Note", truncateNote(l.Description), false)
	}
	return p
}

// divergence is (price - predicted) / predicted in percent, with a marker
// for its sign. Percentages are float64 dollar math so tiny gaps render as
// "+0.0%" or "-0.0%" and keep their sign.
func divergence(price, predicted float64) (string, string) {
	pct := (price - predicted) / predicted * 100
	switch {
	case pct > 0:
		return MarkerUp, "+" + percent(pct)
	case pct < 0:
		return MarkerDown, percent(pct)
	default:
		return MarkerNeutral, "0.0%"
	}
}

func percent(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }

func sellerName(s csfloat.Seller) string {
	switch {
	case s.Username != "":
		return s.Username
	case s.ObfuscatedID != "":
		id := []rune(s.ObfuscatedID)
		return "User " + string(id[:min(len(id), 8)]) + "..."
	default:
		return "Anonymous"
	}
}

func thumbnailURL(icon string) string {
	switch {
	case icon == "":
		return ""
	case strings.HasPrefix(icon, "http"):
		return icon
	default:
		return SteamImageCDN + icon
	}
}

func truncateNote(s string) string {
	r := []rune(s)
	if len(r) <= maxNoteRunes {
		return s
	}
	return string(r[:maxNoteRunes]) + "..."
}

func optInt(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}
