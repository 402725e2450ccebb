// Package protocol implements the Satel Integra wire protocol.
//
// The panel speaks a simple framed binary protocol over TCP (default
// port 7094). Every message is a single frame:
//
//	0xFE 0xFE | command byte | payload | checksum (2 bytes BE) | 0xFE 0x0D
//
// Any 0xFE inside the command/payload/checksum region is escaped to
// 0xFE 0xF0. The checksum is a 16-bit rolling sum seeded with 0x147A,
// computed over the unescaped command and payload bytes.
//
// Commands are single-byte opcodes split into a read namespace (panel to
// client telemetry and results) and a write namespace (client to panel
// actions). Partition, zone and output selections are carried as
// little-endian bitmasks of 1-based positions.
package protocol
