// Package rng provides explicit, splittable pseudo-random keys.
//
// A Key is a value. Consumers never mutate it: they Split it into fresh keys
// and draw numbers from a generator seeded by one of them. Splitting is
// deterministic, so a whole training run or rollout is reproducible from
// its seed.
package rng

import (
	"fmt"
	"math/rand/v2"
)

type Key [2]uint64

func New(seed uint64) Key {
	a := splitmix(seed)
	return Key{a, splitmix(a)}
}

// Split derives two independent keys from k.
func Split(k Key) (Key, Key) {
	a := splitmix(k[0] ^ 0x9e3779b97f4a7c15)
	b := splitmix(k[1] + a)
	c := splitmix(a ^ k[1])
	d := splitmix(b + c)
	return Key{a, b}, Key{c, d}
}

// SplitN derives n keys from k.
func SplitN(k Key, n int) []Key {
	out := make([]Key, n)
	for i := range out {
		k, out[i] = Split(k)
	}
	return out
}

// Rand returns a generator seeded from k. Two calls with the same key yield
// the same stream.
func (k Key) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(k[0], k[1]))
}

func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k[0], k[1])
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
