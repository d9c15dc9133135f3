package models

import (
	"fmt"

	"github.com/starford/lumina/internal/apperr"
)

// Channel names one tonal adjustment.
type Channel string

const (
	Brightness  Channel = "brightness"
	Contrast    Channel = "contrast"
	Saturation  Channel = "saturation"
	Exposure    Channel = "exposure"
	Temperature Channel = "temperature"
	Tint        Channel = "tint"
	Highlights  Channel = "highlights"
	Shadows     Channel = "shadows"
	Whites      Channel = "whites"
	Blacks      Channel = "blacks"
	Clarity     Channel = "clarity"
	Vibrance    Channel = "vibrance"
	Sharpness   Channel = "sharpness"
	Grain       Channel = "grain"
	Vignette    Channel = "vignette"
)

// Range is an inclusive value interval.
type Range struct {
	Min, Max float64
}

// Clamp limits v to r.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ChannelRanges lists every adjustment channel with its allowed range.
var ChannelRanges = map[Channel]Range{
	Brightness:  {-100, 100},
	Contrast:    {-100, 100},
	Saturation:  {-100, 100},
	Exposure:    {-200, 200},
	Temperature: {-100, 100},
	Tint:        {-100, 100},
	Highlights:  {-100, 100},
	Shadows:     {-100, 100},
	Whites:      {-100, 100},
	Blacks:      {-100, 100},
	Clarity:     {-100, 100},
	Vibrance:    {-100, 100},
	Sharpness:   {0, 100},
	Grain:       {0, 100},
	Vignette:    {0, 100},
}

// Adjustments is the global tonal adjustment vector. The zero value is a no-op.
type Adjustments struct {
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	Saturation  float64 `json:"saturation"`
	Exposure    float64 `json:"exposure"`
	Temperature float64 `json:"temperature"`
	Tint        float64 `json:"tint"`
	Highlights  float64 `json:"highlights"`
	Shadows     float64 `json:"shadows"`
	Whites      float64 `json:"whites"`
	Blacks      float64 `json:"blacks"`
	Clarity     float64 `json:"clarity"`
	Vibrance    float64 `json:"vibrance"`
	Sharpness   float64 `json:"sharpness"`
	Grain       float64 `json:"grain"`
	Vignette    float64 `json:"vignette"`
}

func (a *Adjustments) field(ch Channel) *float64 {
	switch ch {
	case Brightness:
		return &a.Brightness
	case Contrast:
		return &a.Contrast
	case Saturation:
		return &a.Saturation
	case Exposure:
		return &a.Exposure
	case Temperature:
		return &a.Temperature
	case Tint:
		return &a.Tint
	case Highlights:
		return &a.Highlights
	case Shadows:
		return &a.Shadows
	case Whites:
		return &a.Whites
	case Blacks:
		return &a.Blacks
	case Clarity:
		return &a.Clarity
	case Vibrance:
		return &a.Vibrance
	case Sharpness:
		return &a.Sharpness
	case Grain:
		return &a.Grain
	case Vignette:
		return &a.Vignette
	}
	return nil
}

// Get returns the value of ch.
func (a Adjustments) Get(ch Channel) (float64, error) {
	f := a.field(ch)
	if f == nil {
		return 0, fmt.Errorf("adjustment %q: %w", ch, apperr.ErrInvalidInput)
	}
	return *f, nil
}

// With returns a copy of a with ch set to v clamped to the channel range.
func (a Adjustments) With(ch Channel, v float64) (Adjustments, error) {
	f := a.field(ch)
	if f == nil {
		return a, fmt.Errorf("adjustment %q: %w", ch, apperr.ErrInvalidInput)
	}
	*f = ChannelRanges[ch].Clamp(v)
	return a, nil
}

// Clamped returns a with every channel clamped to its range.
func (a Adjustments) Clamped() Adjustments {
	for ch, r := range ChannelRanges {
		f := a.field(ch)
		*f = r.Clamp(*f)
	}
	return a
}

// IsZero reports whether every channel is zero.
func (a Adjustments) IsZero() bool {
	return a == Adjustments{}
}
