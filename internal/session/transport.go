package session

// Transport delivers outbound frames to the connected client. Adapters
// perform exactly one write per call and must not buffer or reorder.
type Transport interface {
	SendMessage(text string) error
	SendError(text string) error
}

// Recorder is an in-memory Transport for tests. Messages are retained in
// send order.
type Recorder struct {
	messages []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SendMessage appends the message to the recorded list.
func (r *Recorder) SendMessage(text string) error {
	r.messages = append(r.messages, text)
	return nil
}

// SendError appends the error with an ERROR prefix.
func (r *Recorder) SendError(text string) error {
	r.messages = append(r.messages, "ERROR: "+text)
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []string {
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}
