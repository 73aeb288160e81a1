package metrics

import "github.com/san-kum/trajlab/internal/rollout"

// TotalReward sums the per-frame reward.
type TotalReward struct {
	sum float64
}

func NewTotalReward() *TotalReward { return &TotalReward{} }

func (r *TotalReward) Name() string                   { return "total_reward" }
func (r *TotalReward) Observe(_ int, f rollout.Frame) { r.sum += f.Reward }
func (r *TotalReward) Value() float64                 { return r.sum }
func (r *TotalReward) Reset()                         { r.sum = 0 }
