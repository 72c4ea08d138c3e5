package netid

import (
	"encoding/json"
	"io"
)

// The six wire messages NIM exchanges over its three protocols (spec §5
// EXTERNAL INTERFACES). Field names mirror the spec's notation directly; JSON tags
// keep the wire representation stable independent of Go naming.

// StoreSecretMsg asks the receiver to remember (UID, Secret) against the
// sender. Peer-to-peer only: a receiver never forwards it.
type StoreSecretMsg struct {
	UID    uint64 `json:"uid"`
	Secret uint64 `json:"secret"`
}

// AcceptedMsg acknowledges a StoreSecretMsg.
type AcceptedMsg struct {
	UID uint64 `json:"uid"`
}

// SecretPingMsg is the forwardable probe: "does a path to Target exist
// within HTL hops?" Hops are chosen at random while HTL exceeds DawnHTL
// (HTL - DawnHTL random hops remain) and by closest peer after that.
type SecretPingMsg struct {
	UID     uint64  `json:"uid"`
	Target  float64 `json:"target"`
	HTL     int16   `json:"htl"`
	DawnHTL int16   `json:"dawn_htl"`
	Counter int32   `json:"counter"`
}

// SecretPongMsg is the success reply: the target echoes back the secret it
// was given by StoreSecretMsg, proving the path was genuine.
type SecretPongMsg struct {
	UID     uint64 `json:"uid"`
	Counter int32  `json:"counter"`
	Secret  uint64 `json:"secret"`
}

// RejectedLoopMsg reports the path was too short (still in the
// random-prefix region), a loop, or had no further route.
type RejectedLoopMsg struct {
	UID uint64 `json:"uid"`
}

// NetworkIDMsg is a peer announcing the network id it currently believes it
// has.
type NetworkIDMsg struct {
	ID int32 `json:"id"`
}

// secretPingReply is the tagged union a SecretPing round trip reads back:
// the far end answers with either a SecretPongMsg or a RejectedLoopMsg on
// the same stream, so the reader needs a discriminator to know which.
type secretPingReply struct {
	Kind     string           `json:"kind"`
	Pong     *SecretPongMsg   `json:"pong,omitempty"`
	Rejected *RejectedLoopMsg `json:"rejected,omitempty"`
}

const (
	replyKindPong     = "pong"
	replyKindRejected = "rejected"
)

func newPongReply(msg *SecretPongMsg) secretPingReply {
	return secretPingReply{Kind: replyKindPong, Pong: msg}
}

func newRejectedReply(msg *RejectedLoopMsg) secretPingReply {
	return secretPingReply{Kind: replyKindRejected, Rejected: msg}
}

func encodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func decodeJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// sendMessage writes a length-prefixed frame: a 4-byte big-endian length
// followed by data. Mirrors dep2p's liveness protocol framing so streams
// from unrelated protocols are decoded identically.
func sendMessage(w io.Writer, data []byte) error {
	length := uint32(len(data))
	lengthBytes := []byte{
		byte(length >> 24),
		byte(length >> 16),
		byte(length >> 8),
		byte(length),
	}
	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// receiveMessage reads one length-prefixed frame written by sendMessage.
func receiveMessage(r io.Reader) ([]byte, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return nil, err
	}
	length := uint32(lengthBytes[0])<<24 |
		uint32(lengthBytes[1])<<16 |
		uint32(lengthBytes[2])<<8 |
		uint32(lengthBytes[3])

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
