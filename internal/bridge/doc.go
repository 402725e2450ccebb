// Package bridge exposes panel state to the local network as a WebSocket
// event stream. A small HTTP server upgrades subscribers on /events and a
// broadcast hub fans every panel event out to them as JSON; new subscribers
// get a replay of the latest event of each kind so they start with a full
// picture.
//
// The bridge is read-only: it publishes zone, output, partition and
// connection events but accepts no commands from subscribers.
package bridge
