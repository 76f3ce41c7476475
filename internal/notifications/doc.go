// Package notifications delivers library events via ntfy.
//
// The ntfy implementation posts to the topic URL from the Notify settings and
// degrades to a no-op when no topic is configured. Per-event switches in the
// settings suppress snatch, processed and unprocessed messages; errors and
// test messages are always sent.
package notifications
