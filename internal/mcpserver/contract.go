package mcpserver

// DocumentFormat describes the editor document JSON stored in projects.
const DocumentFormat = `# Lumina Document Format

A project stores one editor document under ` + "`editorState`" + `.

## Document

` + "```" + `json
{
  "canvasSize": {"width": 1080, "height": 1080},
  "layers": [ ...layer objects, bottom first... ],
  "activeLayerId": "layer_...",
  "zoom": 1,
  "pan": {"x": 0, "y": 0},
  "filters": [{"id": "filter_...", "name": "vintage", "intensity": 0.8}],
  "adjustments": {"brightness": 0, "contrast": 0, "saturation": 0, ...}
}
` + "```" + `

## Layers

Every layer has ` + "`id`, `type`, `visible`, `locked`, `opacity` (0-1), `blendMode`" + `
and ` + "`transform` {x, y, scale, rotation}" + `. Rotation is in radians around
the layer origin. The payload is under ` + "`data`" + ` and depends on ` + "`type`" + `:

- ` + "`image`" + `: {path, width, height}. Paths come from the import_image tool.
- ` + "`sticker`" + `: {assetId, sourceType: "emoji", emoji, tint, width, height}.
- ` + "`text`" + `: {text, font, fontSize, color, style, background, shadow, outline,
  padding, borderRadius}.
- ` + "`drawing`" + `: {strokes: [{points, brushType, color, size, opacity}]}.
  Stroke opacity is 0-100; brushType is pen, marker, pencil or eraser.

## Rules

1. Layers paint in array order; the last layer is on top.
2. Layer ids are unique within a document.
3. Filters apply to the bottom visible image layer only, at most one entry per name.
4. Adjustment channels: exposure (-200..200); brightness, contrast, saturation,
   temperature, tint, highlights, shadows, whites, blacks, clarity, vibrance
   (-100..100); sharpness, grain, vignette (0..100).
5. Blend modes: normal, multiply, screen, overlay, darken, lighten.
6. Missing optional fields take defaults (visible true, opacity 1, normal blend,
   identity transform).
`
