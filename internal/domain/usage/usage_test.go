package usage

import (
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHashID(t *testing.T) {
	Convey("Given participant identifiers", t, func() {
		Convey("Then the digest is a fixed-length prefix", func() {
			h := HashID("alice@school.edu")
			So(h, ShouldHaveLength, HashLen)
			So(h, ShouldEqual, HashID("alice@school.edu"))
			So(h, ShouldNotEqual, HashID("bob@school.edu"))
		})

		Convey("Then it matches the known SHA-256 prefix", func() {
			// sha256("abc") = ba7816bf...
			So(HashID("abc"), ShouldEqual, "ba7816bf")
		})
	})
}

func TestRecord(t *testing.T) {
	Convey("Given a record built from raw identifiers", t, func() {
		at := time.Date(2025, 1, 6, 9, 30, 15, 123456000, time.UTC)
		ids := []string{"alice@school.edu", "bob@school.edu"}
		rec := NewRecord(at, ids)

		Convey("When it is rendered", func() {
			line := rec.Line()

			Convey("Then it is timestamp then hashes", func() {
				So(line, ShouldEqual, "2025-01-06 09:30:15.123456,"+HashID(ids[0])+","+HashID(ids[1]))
			})

			Convey("Then raw identifiers never appear", func() {
				for _, id := range ids {
					So(line, ShouldNotContainSubstring, id)
					So(line, ShouldNotContainSubstring, "@")
				}
			})

			Convey("Then it parses back", func() {
				back, err := ParseLine(line)
				So(err, ShouldBeNil)
				So(back.At.Equal(at), ShouldBeTrue)
				So(back.Hashes, ShouldResemble, rec.Hashes)
			})
		})

		Convey("When there are no participants", func() {
			So(NewRecord(at, nil).Line(), ShouldEqual, "2025-01-06 09:30:15.123456")
		})
	})
}

func TestParseLine(t *testing.T) {
	Convey("Given malformed usage lines", t, func() {
		for _, line := range []string{"", "yesterday,abcdefgh", "2025-01-06 09:30:15.123456,abc"} {
			_, err := ParseLine(line)
			So(errors.Is(err, ErrMalformedLine), ShouldBeTrue)
		}
	})
}

func TestReadLines(t *testing.T) {
	Convey("Given a blob with blank lines", t, func() {
		lines, err := ReadLines(strings.NewReader("a\n\n  b  \n"))
		So(err, ShouldBeNil)
		So(lines, ShouldResemble, []string{"a", "b"})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given usage records from several objects", t, func() {
		late := "2025-02-01 08:00:00.000000,ba7816bf"
		early := "2025-01-06 09:30:15.123456,ba7816bf,2cf24dba"

		Convey("When they are merged", func() {
			recs, skipped, err := Merge(strings.NewReader(late+"\n"), strings.NewReader("garbage\n"+early+"\n"))

			Convey("Then they are ordered by time and bad lines are skipped", func() {
				So(err, ShouldBeNil)
				So(skipped, ShouldEqual, 1)
				So(recs, ShouldHaveLength, 2)

				var buf strings.Builder
				So(WriteCSV(&buf, recs), ShouldBeNil)
				So(buf.String(), ShouldEqual, early+"\n"+late+"\n")
			})
		})

		Convey("When there is nothing to merge", func() {
			recs, skipped, err := Merge()
			So(err, ShouldBeNil)
			So(skipped, ShouldEqual, 0)
			So(recs, ShouldBeEmpty)
		})
	})
}
