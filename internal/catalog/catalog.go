// Package catalog lists the built-in sticker assets.
package catalog

import (
	"sort"

	"github.com/starford/lumina/internal/models"
)

// Sticker is one catalog entry.
type Sticker struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Emoji    string  `json:"emoji"`
	Premium  bool    `json:"premium"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func sq(id, name, category, emoji string) Sticker {
	return Sticker{ID: id, Name: name, Category: category, Emoji: emoji, Width: 60, Height: 60}
}

var stickers = []Sticker{
	sq("emoji_heart", "Heart", "emoji", "❤️"),
	sq("emoji_star", "Star", "emoji", "⭐"),
	sq("emoji_fire", "Fire", "emoji", "\U0001f525"),
	sq("emoji_sparkles", "Sparkles", "emoji", "✨"),
	{ID: "emoji_rainbow", Name: "Rainbow", Category: "emoji", Emoji: "\U0001f308", Width: 80, Height: 60},
	sq("emoji_sun", "Sun", "emoji", "☀️"),
	sq("emoji_moon", "Moon", "emoji", "\U0001f319"),
	sq("emoji_lightning", "Lightning", "emoji", "⚡"),
	sq("emoji_crown", "Crown", "emoji", "\U0001f451"),
	sq("emoji_gem", "Gem", "emoji", "\U0001f48e"),

	{ID: "doodle_arrow", Name: "Arrow", Category: "doodles", Emoji: "➡️", Width: 80, Height: 40},
	sq("doodle_check", "Check", "doodles", "✅"),
	sq("doodle_x", "X Mark", "doodles", "❌"),
	sq("doodle_question", "Question", "doodles", "❓"),
	sq("doodle_exclamation", "Exclamation", "doodles", "❗"),
	sq("doodle_heart_eyes", "Heart Eyes", "doodles", "\U0001f60d"),
	sq("doodle_thumbs_up", "Thumbs Up", "doodles", "\U0001f44d"),
	sq("doodle_peace", "Peace", "doodles", "✌️"),
	sq("doodle_ok", "OK Hand", "doodles", "\U0001f44c"),
	sq("doodle_clap", "Clap", "doodles", "\U0001f44f"),

	sq("shape_circle", "Circle", "shapes", "●"),
	sq("shape_square", "Square", "shapes", "■"),
	sq("shape_triangle", "Triangle", "shapes", "▲"),
	sq("shape_diamond", "Diamond", "shapes", "◆"),
	sq("shape_hexagon", "Hexagon", "shapes", "⬢"),
	sq("shape_star_outline", "Star Outline", "shapes", "☆"),
	sq("shape_heart_outline", "Heart Outline", "shapes", "♡"),
	sq("shape_plus", "Plus", "shapes", "+"),
	sq("shape_minus", "Minus", "shapes", "−"),
	sq("shape_multiply", "Multiply", "shapes", "×"),

	{ID: "fashion_sunglasses", Name: "Sunglasses", Category: "fashion", Emoji: "\U0001f576️", Premium: true, Width: 80, Height: 40},
	{ID: "fashion_lipstick", Name: "Lipstick", Category: "fashion", Emoji: "\U0001f484", Premium: true, Width: 40, Height: 80},
	{ID: "fashion_heels", Name: "High Heels", Category: "fashion", Emoji: "\U0001f460", Premium: true, Width: 60, Height: 80},
	{ID: "fashion_dress", Name: "Dress", Category: "fashion", Emoji: "\U0001f457", Premium: true, Width: 60, Height: 80},
}

// All returns every sticker.
func All() []Sticker {
	return append([]Sticker(nil), stickers...)
}

// ByID returns the sticker with id.
func ByID(id string) (Sticker, bool) {
	for _, s := range stickers {
		if s.ID == id {
			return s, true
		}
	}
	return Sticker{}, false
}

// ByCategory returns the stickers of one category.
func ByCategory(category string) []Sticker {
	var out []Sticker
	for _, s := range stickers {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func Categories() []string {
	set := map[string]struct{}{}
	for _, s := range stickers {
		set[s.Category] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Available returns the stickers usable on the given tier.
func Available(premium bool) []Sticker {
	var out []Sticker
	for _, s := range stickers {
		if premium || !s.Premium {
			out = append(out, s)
		}
	}
	return out
}

// LayerData converts s into a sticker payload.
func (s Sticker) LayerData() models.StickerData {
	return models.StickerData{
		AssetID:    s.ID,
		SourceType: models.StickerSourceEmoji,
		Emoji:      s.Emoji,
		Width:      s.Width,
		Height:     s.Height,
	}
}
