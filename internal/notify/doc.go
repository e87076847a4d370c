// Package notify sends the single notification Mercury's core cares about:
// that the Recovery Engine has entered the Catastrophic state and is
// shutting the fleet down. It renders a short text/template message and
// ships it through containrrr/shoutrrr, which fans it out to whichever
// service URLs (Slack, email, generic webhook, ...) the deployment has
// configured.
package notify
