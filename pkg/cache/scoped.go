package cache

// ScopedKeyer prefixes every key of an inner Keyer. Servers use it to keep
// results of different robot configs or API versions apart in a shared
// Redis.
//
//	keyer := cache.NewScopedKeyer(nil, "v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SolveKey(geometry string, opts SolveKeyOpts) string {
	return k.prefix + k.inner.SolveKey(geometry, opts)
}

func (k *ScopedKeyer) SweepKey(geometry string, opts SweepKeyOpts) string {
	return k.prefix + k.inner.SweepKey(geometry, opts)
}

func (k *ScopedKeyer) SpecKey(geometry string, opts SpecKeyOpts) string {
	return k.prefix + k.inner.SpecKey(geometry, opts)
}
