// Package bot exposes the tracker as Telegram commands and renders listing
// notifications as Telegram HTML.
package bot
