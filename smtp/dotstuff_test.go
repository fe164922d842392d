package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDotStuff(t *testing.T) {
	Convey("A body with no leading dots is untouched", t, func() {
		So(DotStuff([]byte("Before\r\nAfter")), ShouldResemble, []byte("Before\r\nAfter"))
	})

	Convey("A line beginning with a single dot gets an extra dot", t, func() {
		So(DotStuff([]byte("Before\r\n.\r\nAfter")), ShouldResemble, []byte("Before\r\n..\r\nAfter"))
	})

	Convey("A body beginning with a dot is stuffed at position zero", t, func() {
		So(DotStuff([]byte(".leading")), ShouldResemble, []byte("..leading"))
	})

	Convey("Multiple stuffed lines are all stuffed", t, func() {
		in := []byte("a\r\n.b\r\n.c\r\nd")
		So(DotStuff(in), ShouldResemble, []byte("a\r\n..b\r\n..c\r\nd"))
	})

	Convey("Unstuff reverses DotStuff", t, func() {
		bodies := [][]byte{
			[]byte("Before\r\nAfter"),
			[]byte("Before\r\n.\r\nAfter"),
			[]byte(".leading"),
			[]byte("a\r\n.b\r\n.c\r\nd"),
			[]byte(""),
		}
		for _, b := range bodies {
			So(Unstuff(DotStuff(b)), ShouldResemble, b)
		}
	})
}
