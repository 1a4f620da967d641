package session

// history models the address bar of one browsing session: a stack of query
// strings with a cursor. Writes are reported through echo so the session can
// feed them back to the controller as URL changes.
type history struct {
	entries []string
	index   int
	echo    func(query string)
}

func newHistory(initial string, echo func(string)) *history {
	return &history{entries: []string{initial}, echo: echo}
}

func (h *history) Push(query string) {
	h.entries = append(h.entries[:h.index+1], query)
	h.index++
	h.echo(query)
}

// Visit adds an entry written by someone other than the controller, so it is
// not echoed.
func (h *history) Visit(query string) {
	h.entries = append(h.entries[:h.index+1], query)
	h.index++
}

func (h *history) Replace(query string) {
	h.entries[h.index] = query
	h.echo(query)
}

func (h *history) Current() string {
	return h.entries[h.index]
}

func (h *history) Back() (string, bool) {
	if h.index == 0 {
		return "", false
	}
	h.index--
	return h.entries[h.index], true
}

func (h *history) Forward() (string, bool) {
	if h.index >= len(h.entries)-1 {
		return "", false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *history) CanGoBack() bool    { return h.index > 0 }
func (h *history) CanGoForward() bool { return h.index < len(h.entries)-1 }
