package debugui

// History is a fixed size ring of samples for ImGui plots.
type History struct {
	values []float32
	next   int
	filled int
}

func NewHistory(n int) *History {
	return &History{values: make([]float32, max(n, 1))}
}

// Push records a sample, overwriting the oldest one once full.
func (h *History) Push(v float32) {
	h.values[h.next] = v
	h.next = (h.next + 1) % len(h.values)
	h.filled = min(h.filled+1, len(h.values))
}

// Average of the recorded samples.
func (h *History) Average() float32 {
	if h.filled == 0 {
		return 0
	}
	var sum float32
	for _, v := range h.Ordered() {
		sum += v
	}
	return sum / float32(h.filled)
}

// Ordered returns the recorded samples, oldest first.
func (h *History) Ordered() []float32 {
	out := make([]float32, 0, h.filled)
	start := (h.next - h.filled + len(h.values)) % len(h.values)
	for i := range h.filled {
		out = append(out, h.values[(start+i)%len(h.values)])
	}
	return out
}

// Raw exposes the backing ring in storage order, as ImGui plots take a pointer to the first
// element.
func (h *History) Raw() []float32 {
	return h.values
}
