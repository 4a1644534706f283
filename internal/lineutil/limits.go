// Package lineutil provides LINE message building utilities.
package lineutil

// LINE API limits, counted in runes.
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000
	MaxAltTextLength       = 400
	MaxPostbackData        = 300
	MaxActionLabel         = 20
	MaxFlexCarouselBubbles = 12
	MaxQuickReplyItems     = 13
	MaxReplyMessages       = 5 // Messages per reply token
)

// Spacing follows a 4-point grid.
const (
	SpacingXS  = "4px"
	SpacingS   = "8px"
	SpacingM   = "12px"
	SpacingL   = "16px"
	SpacingXXL = "24px"

	LineSpacingNormal = "6px"
)

// Colors from the LINE design system.
// Reference: https://designsystem.line.me/LDSM/foundation/color/line-color-guide-ex-en
const (
	ColorLineGreen = "#06C755"
	ColorWhite     = "#FFFFFF"
	ColorGray600   = "#777777"
	ColorGray900   = "#111111"
	ColorBlue500   = "#638DFF"

	ColorPrimary   = ColorLineGreen
	ColorSecondary = ColorBlue500
	ColorText      = ColorGray900
	ColorLabel     = "#666666" // 5.7:1 contrast, WCAG AA
	ColorSubtext   = ColorGray600
	ColorHeroBg    = ColorLineGreen
	ColorHeroText  = ColorWhite
)
