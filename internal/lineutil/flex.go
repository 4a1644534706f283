package lineutil

import (
	"math"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// NewFlexBubble assembles a bubble. Any section may be nil.
func NewFlexBubble(header, body, footer *FlexBox) *messaging_api.FlexBubble {
	bubble := &messaging_api.FlexBubble{}
	if header != nil {
		bubble.Header = header.FlexBox
	}
	if body != nil {
		bubble.Body = body.FlexBox
	}
	if footer != nil {
		bubble.Footer = footer.FlexBox
	}
	return bubble
}

// NewFlexCarousel wraps bubbles in a carousel, keeping at most
// MaxFlexCarouselBubbles.
func NewFlexCarousel(bubbles []messaging_api.FlexBubble) *messaging_api.FlexCarousel {
	if len(bubbles) > MaxFlexCarouselBubbles {
		bubbles = bubbles[:MaxFlexCarouselBubbles]
	}
	return &messaging_api.FlexCarousel{Contents: bubbles}
}

// FlexBox wraps messaging_api.FlexBox with a fluent API.
type FlexBox struct {
	*messaging_api.FlexBox
}

// NewFlexBox creates a box with the given layout (vertical, horizontal, baseline).
func NewFlexBox(layout string, contents ...messaging_api.FlexComponentInterface) *FlexBox {
	return &FlexBox{&messaging_api.FlexBox{
		Layout:   messaging_api.FlexBoxLAYOUT(layout),
		Contents: contents,
	}}
}

func (b *FlexBox) WithSpacing(spacing string) *FlexBox {
	b.Spacing = spacing
	return b
}

func (b *FlexBox) WithMargin(margin string) *FlexBox {
	b.Margin = margin
	return b
}

func (b *FlexBox) WithPaddingAll(padding string) *FlexBox {
	b.PaddingAll = padding
	return b
}

func (b *FlexBox) WithBackgroundColor(color string) *FlexBox {
	b.BackgroundColor = color
	return b
}

// FlexText wraps messaging_api.FlexText with a fluent API.
type FlexText struct {
	*messaging_api.FlexText
}

// NewFlexText creates a text component. LINE rejects empty text, so callers
// should skip empty values.
func NewFlexText(text string) *FlexText {
	return &FlexText{&messaging_api.FlexText{Text: text}}
}

func (t *FlexText) WithWeight(weight string) *FlexText {
	t.Weight = messaging_api.FlexTextWEIGHT(weight)
	return t
}

func (t *FlexText) WithSize(size string) *FlexText {
	t.Size = size
	return t
}

func (t *FlexText) WithColor(color string) *FlexText {
	t.Color = color
	return t
}

func (t *FlexText) WithWrap(wrap bool) *FlexText {
	t.Wrap = wrap
	return t
}

func (t *FlexText) WithMargin(margin string) *FlexText {
	t.Margin = margin
	return t
}

func (t *FlexText) WithFlex(flex int) *FlexText {
	t.Flex = clampInt32(flex)
	return t
}

func (t *FlexText) WithMaxLines(lines int) *FlexText {
	t.MaxLines = clampInt32(lines)
	return t
}

func (t *FlexText) WithLineSpacing(spacing string) *FlexText {
	t.LineSpacing = spacing
	return t
}

func clampInt32(v int) int32 {
	return int32(max(0, min(v, math.MaxInt32)))
}

// FlexButton wraps messaging_api.FlexButton with a fluent API.
type FlexButton struct {
	*messaging_api.FlexButton
}

func NewFlexButton(action messaging_api.ActionInterface) *FlexButton {
	return &FlexButton{&messaging_api.FlexButton{Action: action}}
}

// WithStyle sets link, primary or secondary.
func (b *FlexButton) WithStyle(style string) *FlexButton {
	b.Style = messaging_api.FlexButtonSTYLE(style)
	return b
}

func (b *FlexButton) WithColor(color string) *FlexButton {
	b.Color = color
	return b
}

func (b *FlexButton) WithHeight(height string) *FlexButton {
	b.Height = messaging_api.FlexButtonHEIGHT(height)
	return b
}

// TruncateRunes shortens text to maxRunes, ending in "..." when cut.
func TruncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// NewCompactHeroBox is a green title header for carousel cards.
func NewCompactHeroBox(title string) *FlexBox {
	return NewFlexBox("vertical",
		NewFlexText(title).WithWeight("bold").WithSize("md").WithColor(ColorHeroText).
			WithWrap(true).WithMaxLines(3).WithLineSpacing(LineSpacingNormal).FlexText,
	).WithBackgroundColor(ColorHeroBg).WithPaddingAll(SpacingL)
}

// NewInfoRow renders "emoji label" over a wrapped value.
func NewInfoRow(emoji, label, value string) *FlexBox {
	return NewFlexBox("vertical",
		NewFlexBox("horizontal",
			NewFlexText(emoji).WithSize("sm").WithFlex(0).FlexText,
			NewFlexText(label).WithColor(ColorLabel).WithSize("xs").WithFlex(0).WithMargin("sm").FlexText,
		).WithSpacing("sm").FlexBox,
		NewFlexText(value).WithColor(ColorText).WithSize("sm").WithMargin("sm").WithWrap(true).FlexText,
	)
}

// BodyBuilder collects info rows, separating consecutive rows.
type BodyBuilder struct {
	contents []messaging_api.FlexComponentInterface
}

func NewBodyBuilder() *BodyBuilder {
	return &BodyBuilder{}
}

// AddInfoRow appends a row; empty values are skipped.
func (b *BodyBuilder) AddInfoRow(emoji, label, value string) *BodyBuilder {
	if value == "" {
		return b
	}
	return b.Add(NewInfoRow(emoji, label, value).WithMargin("sm").FlexBox)
}

// Add appends a raw component.
func (b *BodyBuilder) Add(component messaging_api.FlexComponentInterface) *BodyBuilder {
	if len(b.contents) > 0 {
		b.contents = append(b.contents, &messaging_api.FlexSeparator{Margin: "sm"})
	}
	b.contents = append(b.contents, component)
	return b
}

// Len returns the number of components added, separators included.
func (b *BodyBuilder) Len() int {
	return len(b.contents)
}

func (b *BodyBuilder) Build() *FlexBox {
	return NewFlexBox("vertical", b.contents...).WithSpacing("sm")
}

// NewButtonFooter stacks buttons vertically, skipping nils.
func NewButtonFooter(buttons ...*FlexButton) *FlexBox {
	contents := make([]messaging_api.FlexComponentInterface, 0, len(buttons))
	for _, btn := range buttons {
		if btn != nil {
			contents = append(contents, btn.FlexButton)
		}
	}
	return NewFlexBox("vertical", contents...).WithSpacing("sm")
}
