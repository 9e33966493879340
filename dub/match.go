package dub

const maxKey = 127

type matcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return i >= r.start && i <= r.end
}

var matchAll = rangeMatch{0, maxKey}

type listMatch []int

func (l listMatch) match(i int) bool {
	for _, k := range l {
		if k == i {
			return true
		}
	}
	return false
}

// Contains reports whether key is selected by the set.
func (s KeySet) Contains(key int) bool {
	for _, m := range s.matchers {
		if m.match(key) {
			return true
		}
	}
	return false
}

// Keys returns the selected keys in ascending order.
func (s KeySet) Keys() []int {
	var keys []int
	for k := 0; k <= maxKey; k++ {
		if s.Contains(k) {
			keys = append(keys, k)
		}
	}
	return keys
}
