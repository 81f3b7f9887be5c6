// Package tgui provides small helpers for Telegram ParseMode="HTML" text:
// escaping, inline formatting tags, links and rune-aware truncation.
//
// Values of type H are already escaped and can be concatenated freely;
// plain strings must go through Esc (or one of the tag helpers) first.
package tgui
