package provider

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractInt(t *testing.T) {
	Convey("ExtractInt normalizes loosely typed numbers", t, func() {
		cases := []struct {
			in   interface{}
			want int
			ok   bool
		}{
			{float64(21), 21, true},
			{7, 7, true},
			{int64(3), 3, true},
			{"14", 14, true},
			{" 3.0 ", 3, true},
			{map[string]interface{}{"value": float64(2), "displayValue": "2"}, 2, true},
			{map[string]interface{}{"displayValue": "5"}, 5, true},
			{"--", 0, false},
			{nil, 0, false},
			{math.NaN(), 0, false},
			{true, 0, false},
		}
		for _, c := range cases {
			got, ok := ExtractInt(c.in)
			So(ok, ShouldEqual, c.ok)
			So(got, ShouldEqual, c.want)
		}
	})

	Convey("IntOr falls back on failure and negatives", t, func() {
		So(IntOr("12", 0), ShouldEqual, 12)
		So(IntOr("", 0), ShouldEqual, 0)
		So(IntOr(float64(-1), 0), ShouldEqual, 0)
	})
}
