package orders

// Money represents currency in minor units (tiyn/cents) as reported by the POS. Analytics adapters convert to major units.
type Money int64

func (m Money) ToFloat2() float64 { return float64(m) / 100.0 }
