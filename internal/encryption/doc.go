// Package encryption implements the Satel integration encryption layer.
//
// When an integration key is configured, every frame travels inside an
// encrypted protocol data unit (PDU): a 6-byte header (two random bytes,
// a big-endian rolling counter, the sender session id and the last-seen
// peer session id) followed by the plaintext frame, encrypted as a whole
// with AES in Satel's self-synchronizing chained block mode.
//
// The key is derived from the ASCII integration passphrase by space
// padding it to 12 bytes and duplicating those into 24 bytes of AES key
// material, matching the reference vectors in the manufacturer's
// integration manual.
package encryption
