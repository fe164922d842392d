package smtp

// DefaultBufferCapacity is the size of the buffer an owned Session allocates
// when the caller doesn't provide one. It comfortably fits the longest
// multi-line reply a typical submission server sends.
const DefaultBufferCapacity = 1024

// Buffer is the byte region a Session reads server replies into and reuses,
// in place, as the parsed representation (see Reply). It has exactly one of
// two provenances:
//
//   - owned: allocated by NewBuffer, backed by a freshly made []byte.
//   - borrowed: wraps a slice the caller already owns, via NewBorrowedBuffer
//     — the shape a no-heap caller on a constrained device uses, handing in
//     a fixed-size array slice instead of letting this package allocate.
//
// Go's garbage collector erases the owned/borrowed distinction that a
// lifetime-tracked language like Rust would enforce at compile time; Buffer
// keeps the two constructors and the Owned() query purely as documentation
// of that contract. The one invariant Go *can* and does enforce: capacity
// never changes for the lifetime of a Buffer.
type Buffer struct {
	data  []byte
	owned bool
}

// NewBuffer allocates an owned Buffer of the given capacity.
func NewBuffer(capacity int) Buffer {
	return Buffer{data: make([]byte, capacity), owned: true}
}

// NewBorrowedBuffer wraps a caller-supplied slice as a borrowed Buffer. The
// caller must not use buf for anything else while the Session holding this
// Buffer is alive.
func NewBorrowedBuffer(buf []byte) Buffer {
	return Buffer{data: buf, owned: false}
}

// Owned reports whether this Buffer allocated its own backing array.
func (b Buffer) Owned() bool {
	return b.owned
}

// Cap returns the buffer's fixed capacity.
func (b Buffer) Cap() int {
	return len(b.data)
}

// Bytes exposes the full backing slice. Session is the only intended caller;
// it is exported so that a ByteStream implementation inspecting IntoInner's
// returned Buffer (for example to size a follow-up allocation) can do so.
func (b Buffer) Bytes() []byte {
	return b.data
}
