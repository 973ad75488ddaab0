package hashmap

// HashMap is a string-keyed map that is safe for concurrent use.
type HashMap[V any] interface {
	Delete(string)
	Load(string) (val V, loaded bool)
	LoadAndDelete(string) (val V, exists bool)
	LoadOrStore(string, V) (val V, loaded bool)

	// Range iterates over a snapshot of the map. Iteration stops when the callback returns false.
	Range(func(string, V) (contd bool))

	Store(string, V)
	Len() int
}
