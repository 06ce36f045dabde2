package router

import "github.com/m3rciful/regbot/core/telegram/ui"

// FallbacksFrom derives the text and callback fallback options from a
// single provider, keeping the unknown-update surface in one place.
func FallbacksFrom(p ui.FallbackProvider) (TextOptions, CallbackOptions) {
	return TextOptions{
			UnknownText:    p.UnknownText(),
			UnknownContact: p.UnknownContact(),
		}, CallbackOptions{
			NotFound: p.UnknownCallback(),
		}
}
