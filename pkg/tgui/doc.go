// Package tgui holds small helpers for composing Telegram HTML messages:
// escaping, inline markup, key/value cards and rune-safe truncation.
package tgui
