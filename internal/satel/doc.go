// Package satel implements the top-level Integra panel driver: a
// serialized command queue on top of the transport layer, a background
// read loop that correlates responses and dispatches unsolicited state
// reports, and a keep-alive that stops the ETHM module from dropping an
// idle session.
package satel
