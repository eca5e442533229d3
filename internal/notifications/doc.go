// Package notifications delivers job and batch outcomes via ntfy.
//
// The ntfy topic URL comes from config.toml (or STEMSPLIT_NTFY_TOPIC). With no
// topic the service degrades to a no-op. Per-event toggles let users silence
// job, batch or error pushes independently; TestNotification ignores them.
package notifications
