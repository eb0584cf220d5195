package auth

import (
	"fmt"
	"strconv"
)

// dialogProbe is a single strategy for locating a consent control: a name
// for logging plus a JavaScript expression that evaluates to the target
// element or null. Probes are tried in order; the first one that resolves
// a visible element wins.
type dialogProbe struct {
	name string
	find string
}

// visibleButtonWithText builds a finder for a visible button whose text
// contains the given string.
func visibleButtonWithText(text string) string {
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll('button')).find(el => el.textContent.includes(%s) && el.offsetParent !== null) || null`,
		strconv.Quote(text),
	)
}

// visibleElementWithText builds a finder for any visible clickable element
// whose own text contains the given string.
func visibleElementWithText(text string) string {
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll('a, button, div[role="button"], span')).find(el => el.textContent.trim() === %s && el.offsetParent !== null) || null`,
		strconv.Quote(text),
	)
}

// visibleSelector builds a finder for the first visible element matching a
// CSS selector.
func visibleSelector(selector string) string {
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).find(el => el.offsetParent !== null) || null`,
		strconv.Quote(selector),
	)
}

// anySelector builds a finder that does not require visibility. Used for
// checkboxes, which are often styled invisible behind a label.
func anySelector(selector string) string {
	return fmt.Sprintf(`document.querySelector(%s)`, strconv.Quote(selector))
}

// regionalNoticeProbes locate the acknowledgment control of the "for users
// abroad" notice. The dialog markup is not under our control, so several
// shapes are probed.
func regionalNoticeProbes() []dialogProbe {
	return []dialogProbe{
		{name: "button:確認しました", find: visibleButtonWithText("確認しました")},
		{name: "button:I understand", find: visibleButtonWithText("I understand")},
		{name: "text:確認しました", find: visibleElementWithText("確認しました")},
		{name: "text:I understand", find: visibleElementWithText("I understand")},
	}
}

// consentCheckboxProbes locate a terms-acceptance checkbox.
func consentCheckboxProbes() []dialogProbe {
	return []dialogProbe{
		{name: "input[type=checkbox]", find: anySelector("input[type='checkbox']")},
		{name: "[type=checkbox]", find: anySelector("[type='checkbox']")},
		{name: "label>checkbox", find: anySelector("label input[type='checkbox']")},
	}
}

// consentSubmitProbes locate a terms-acceptance submit control.
func consentSubmitProbes() []dialogProbe {
	return []dialogProbe{
		{name: "button:OK", find: visibleButtonWithText("OK")},
		{name: "button:同意", find: visibleButtonWithText("同意")},
		{name: "button:次へ", find: visibleButtonWithText("次へ")},
		{name: "button[type=submit]", find: visibleSelector("button[type='submit']")},
		{name: "button.submit", find: visibleSelector("button.submit")},
		{name: ".button--primary", find: visibleSelector(".button--primary")},
	}
}
