package wire

// ControlTopic is the reserved topic subscription-propagation traffic
// rides on between a driver and the Proxy server (spec.md §6).
const ControlTopic = "xmsg:control"

// Control sub-commands carried in Meta.Action on ControlTopic frames.
const (
	ControlCommandPub   = "pub"
	ControlCommandSub   = "sub"
	ControlCommandUnsub = "unsub"
	ControlCommandRep   = "rep"
)
