package wire

// Handshake is exchanged first on every connection: protocol version
// and initial window size (§4.4). Not itself request/response framed
// (no corr) since it happens before any session exists.
type Handshake struct {
	ProtocolVersion uint8
	Rows            uint16
	Cols            uint16
}

func (h *Handshake) Kind() Kind { return KindHandshake }
func (h *Handshake) toMap() map[string]interface{} {
	return map[string]interface{}{
		"version": h.ProtocolVersion,
		"rows":    h.Rows,
		"cols":    h.Cols,
	}
}
func decodeHandshake(m map[string]interface{}) (Message, error) {
	v, _ := mapGetUint64(m, "version")
	rows, _ := mapGetUint64(m, "rows")
	cols, _ := mapGetUint64(m, "cols")
	return &Handshake{ProtocolVersion: uint8(v), Rows: uint16(rows), Cols: uint16(cols)}, nil
}

// ProtocolVersion is the version Nexus clients and servers must agree
// on for the handshake to succeed (§4.4).
const ProtocolVersion uint8 = 1

// --- Requests (client -> server), all carry Corr ---

type CreateChannelReq struct {
	Corr uint64
	Name string
	Argv []string
	Cwd  string
	Env  []string
}

func (r *CreateChannelReq) Kind() Kind { return KindCreateChannel }
func (r *CreateChannelReq) toMap() map[string]interface{} {
	return map[string]interface{}{
		"corr": r.Corr,
		"name": r.Name,
		"argv": stringsToAny(r.Argv),
		"cwd":  r.Cwd,
		"env":  envToPairs(r.Env),
	}
}
func decodeCreateChannel(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	name, _ := mapGetString(m, "name")
	cwd, _ := mapGetString(m, "cwd")
	return &CreateChannelReq{
		Corr: corr, Name: name, Argv: mapGetStringSlice(m, "argv"),
		Cwd: cwd, Env: mapGetEnv(m, "env"),
	}, nil
}

type KillChannelReq struct {
	Corr   uint64
	Name   string
	Signal uint8
}

func (r *KillChannelReq) Kind() Kind { return KindKillChannel }
func (r *KillChannelReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "name": r.Name, "signal": r.Signal}
}
func decodeKillChannel(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	name, _ := mapGetString(m, "name")
	sig, _ := mapGetUint64(m, "signal")
	return &KillChannelReq{Corr: corr, Name: name, Signal: uint8(sig)}, nil
}

type ListChannelsReq struct{ Corr uint64 }

func (r *ListChannelsReq) Kind() Kind { return KindListChannels }
func (r *ListChannelsReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr}
}
func decodeListChannels(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	return &ListChannelsReq{Corr: corr}, nil
}

type ChannelStatusReq struct {
	Corr uint64
	Name string // empty means "all"
}

func (r *ChannelStatusReq) Kind() Kind { return KindChannelStatus }
func (r *ChannelStatusReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "name": r.Name}
}
func decodeChannelStatus(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	name, _ := mapGetString(m, "name")
	return &ChannelStatusReq{Corr: corr, Name: name}, nil
}

type SubscribeReq struct {
	Corr  uint64
	Names []string // may contain the literal "*"
}

func (r *SubscribeReq) Kind() Kind { return KindSubscribe }
func (r *SubscribeReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "names": stringsToAny(r.Names)}
}
func decodeSubscribe(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	return &SubscribeReq{Corr: corr, Names: mapGetStringSlice(m, "names")}, nil
}

type UnsubscribeReq struct {
	Corr  uint64
	Names []string
}

func (r *UnsubscribeReq) Kind() Kind { return KindUnsubscribe }
func (r *UnsubscribeReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "names": stringsToAny(r.Names)}
}
func decodeUnsubscribe(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	return &UnsubscribeReq{Corr: corr, Names: mapGetStringSlice(m, "names")}, nil
}

type WriteInputReq struct {
	Corr  uint64
	Name  string
	Bytes []byte
}

func (r *WriteInputReq) Kind() Kind { return KindWriteInput }
func (r *WriteInputReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "name": r.Name, "bytes": r.Bytes}
}
func decodeWriteInput(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	name, _ := mapGetString(m, "name")
	b, _ := mapGetBytes(m, "bytes")
	return &WriteInputReq{Corr: corr, Name: name, Bytes: b}, nil
}

type ResizeReq struct {
	Corr uint64
	Name string // empty means "all"
	Rows uint16
	Cols uint16
}

func (r *ResizeReq) Kind() Kind { return KindResize }
func (r *ResizeReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "name": r.Name, "rows": r.Rows, "cols": r.Cols}
}
func decodeResize(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	name, _ := mapGetString(m, "name")
	rows, _ := mapGetUint64(m, "rows")
	cols, _ := mapGetUint64(m, "cols")
	return &ResizeReq{Corr: corr, Name: name, Rows: uint16(rows), Cols: uint16(cols)}, nil
}

type PingReq struct {
	Corr  uint64
	Nonce uint64
}

func (r *PingReq) Kind() Kind { return KindPing }
func (r *PingReq) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "nonce": r.Nonce}
}
func decodePing(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	nonce, _ := mapGetUint64(m, "nonce")
	return &PingReq{Corr: corr, Nonce: nonce}, nil
}

// --- Responses (server -> client) ---

type OkResp struct {
	Corr    uint64
	Payload map[string]interface{}
}

func (r *OkResp) Kind() Kind { return KindOk }
func (r *OkResp) toMap() map[string]interface{} {
	m := map[string]interface{}{"corr": r.Corr}
	if r.Payload != nil {
		m["payload"] = r.Payload
	}
	return m
}
func decodeOk(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	var payload map[string]interface{}
	if p, ok := m["payload"]; ok {
		payload, _ = p.(map[string]interface{})
	}
	return &OkResp{Corr: corr, Payload: payload}, nil
}

// Error kinds (§6).
const (
	ErrAlreadyExists     = "AlreadyExists"
	ErrNotFound          = "NotFound"
	ErrExecFailed        = "ExecFailed"
	ErrWriteBackpressure = "WriteBackpressure"
	ErrChannelGone       = "ChannelGone"
	ErrUnknownRequest    = "UnknownRequest"
	ErrInternal          = "Internal"
)

type ErrResp struct {
	Corr    uint64
	ErrKind string
	Message string
}

func (r *ErrResp) Kind() Kind { return KindErr }
func (r *ErrResp) toMap() map[string]interface{} {
	return map[string]interface{}{"corr": r.Corr, "err_kind": r.ErrKind, "message": r.Message}
}
func decodeErr(m map[string]interface{}) (Message, error) {
	corr, _ := mapGetUint64(m, "corr")
	kind, _ := mapGetString(m, "err_kind")
	msg, _ := mapGetString(m, "message")
	return &ErrResp{Corr: corr, ErrKind: kind, Message: msg}, nil
}

// --- Events (server -> client, no corr) ---

type OutputEvent struct {
	Name string
	Seq  uint64
	Data []byte
}

func (e *OutputEvent) Kind() Kind { return KindOutput }
func (e *OutputEvent) toMap() map[string]interface{} {
	return map[string]interface{}{"name": e.Name, "seq": e.Seq, "bytes": e.Data}
}
func decodeOutput(m map[string]interface{}) (Message, error) {
	name, _ := mapGetString(m, "name")
	seq, _ := mapGetUint64(m, "seq")
	b, _ := mapGetBytes(m, "bytes")
	return &OutputEvent{Name: name, Seq: seq, Data: b}, nil
}

type ChannelCreatedEvent struct {
	Name    string
	Command []string
}

func (e *ChannelCreatedEvent) Kind() Kind { return KindChannelCreated }
func (e *ChannelCreatedEvent) toMap() map[string]interface{} {
	return map[string]interface{}{"name": e.Name, "command": stringsToAny(e.Command)}
}
func decodeChannelCreated(m map[string]interface{}) (Message, error) {
	name, _ := mapGetString(m, "name")
	return &ChannelCreatedEvent{Name: name, Command: mapGetStringSlice(m, "command")}, nil
}

type ChannelExitedEvent struct {
	Name string
	Code int
}

func (e *ChannelExitedEvent) Kind() Kind { return KindChannelExited }
func (e *ChannelExitedEvent) toMap() map[string]interface{} {
	return map[string]interface{}{"name": e.Name, "code": int64(e.Code)}
}
func decodeChannelExited(m map[string]interface{}) (Message, error) {
	name, _ := mapGetString(m, "name")
	code, _ := mapGetUint64(m, "code")
	return &ChannelExitedEvent{Name: name, Code: int(int64(code))}, nil
}

type DropNoticeEvent struct {
	Name         string
	BytesDropped uint64
}

func (e *DropNoticeEvent) Kind() Kind { return KindDropNotice }
func (e *DropNoticeEvent) toMap() map[string]interface{} {
	return map[string]interface{}{"name": e.Name, "bytes_dropped": e.BytesDropped}
}
func decodeDropNotice(m map[string]interface{}) (Message, error) {
	name, _ := mapGetString(m, "name")
	b, _ := mapGetUint64(m, "bytes_dropped")
	return &DropNoticeEvent{Name: name, BytesDropped: b}, nil
}
