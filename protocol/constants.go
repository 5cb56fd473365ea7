package protocol

// MCPVersion is the protocol revision negotiated during initialize.
const MCPVersion = "2024-11-05"

// Method names handled by the tool server.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
	MethodCancelled   = "notifications/cancelled"
)
