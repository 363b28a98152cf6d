package common

// AccessTokenHeaderName is the gRPC metadata key a peer node uses to carry
// its bearer token on callback requests.
const AccessTokenHeaderName = "access_token"

// HistoryTypeNodeMessage marks ledger entries whose linked object id refers
// to a NodeMessage.
const HistoryTypeNodeMessage = "nodemessage"
