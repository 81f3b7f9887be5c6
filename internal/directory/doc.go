// Package directory loads the Taiga-user to Telegram-chat mapping.
//
// The users file is read into an immutable Snapshot. A Store holds the
// current Snapshot and swaps it atomically on reload, so an event that is
// being processed always sees one consistent version of the directory.
package directory
