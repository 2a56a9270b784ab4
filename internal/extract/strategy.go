package extract

// Outcome is the result of running a strategy chain.
type Outcome[T any] struct {
	Value  T
	Source string
	Found  bool
}

// Strategy is one named way of producing a value from a scope.
type Strategy[S, T any] struct {
	Name string
	Try  func(scope S) (T, bool)
}

// FirstOf runs strategies in order and returns the first success. A strategy
// that panics counts as a miss; it never stops the chain.
func FirstOf[S, T any](scope S, strategies ...Strategy[S, T]) Outcome[T] {
	for _, s := range strategies {
		if v, ok := attempt(s, scope); ok {
			return Outcome[T]{Value: v, Source: s.Name, Found: true}
		}
	}
	return Outcome[T]{}
}

func attempt[S, T any](s Strategy[S, T], scope S) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, ok = zero, false
		}
	}()
	return s.Try(scope)
}
