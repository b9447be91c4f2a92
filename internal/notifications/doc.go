// Package notifications delivers desktop alerts for ingestion milestones.
//
// The default implementation shells out to the command configured in
// config.toml (notify-send on most desktops) and gracefully degrades to a
// no-op when notifications are disabled. Failures carry critical urgency so
// they surface even on quiet desktops; starts do not.
//
// Extend this package if you need alternative transports; the engine depends
// only on the simple Service interface.
package notifications
