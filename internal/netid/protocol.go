package netid

import "github.com/dep2p/netid-manager/pkg/protocol"

// Protocol IDs the Protocol Engine speaks, re-exported from pkg/protocol so
// callers wiring a Host only need to import this package.
const (
	ProtocolStoreSecret = protocol.StoreSecret
	ProtocolSecretPing  = protocol.SecretPing
	ProtocolNetworkID   = protocol.NetworkID
)
