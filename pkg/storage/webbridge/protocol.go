package webbridge

// Message types exchanged with the browser client. All frames are JSON text
// messages.
const (
	// typeHello is the first client frame, announcing the window ID.
	typeHello = "hello"

	// typeGet, typeSet, typeRemove are server requests against a storage
	// area. Each carries a request ID the client echoes back.
	typeGet    = "get"
	typeSet    = "set"
	typeRemove = "remove"

	// typeResult is the client's response to a server request.
	typeResult = "result"

	// typeEvent is an unsolicited client frame forwarding a browser storage
	// event.
	typeEvent = "event"
)

// Storage area names, matching the browser surfaces they proxy.
const (
	AreaLocal   = "local"
	AreaSession = "session"
)

// message is the wire frame for every direction.
type message struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id,omitempty"`
	Window string `json:"window,omitempty"`
	Area   string `json:"area,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`

	// Present distinguishes an empty string value from an absent slot in
	// get results.
	Present bool `json:"present,omitempty"`

	// Error carries a client-side failure for the matching request.
	Error string `json:"error,omitempty"`
}
