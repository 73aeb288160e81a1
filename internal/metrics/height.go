package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/trajlab/internal/rollout"
)

// Height tracks the extreme z coordinate of one body.
type Height struct {
	name    string
	body    int
	max     bool
	value   float64
	samples int
}

func NewMinHeight(body int) *Height {
	return &Height{name: fmt.Sprintf("min_height_%d", body), body: body}
}

func NewMaxHeight(body int) *Height {
	return &Height{name: fmt.Sprintf("max_height_%d", body), body: body, max: true}
}

func (h *Height) Name() string { return h.name }

func (h *Height) Observe(_ int, f rollout.Frame) {
	i := 7*h.body + 2
	if i >= len(f.Q) {
		return
	}
	z := f.Q[i]
	switch {
	case h.samples == 0:
		h.value = z
	case h.max:
		h.value = math.Max(h.value, z)
	default:
		h.value = math.Min(h.value, z)
	}
	h.samples++
}

func (h *Height) Value() float64 { return h.value }

func (h *Height) Reset() {
	h.value = 0
	h.samples = 0
}
